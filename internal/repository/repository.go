package repository

import "gorm.io/gorm"

// Repositories 仓库集合，用于统一管理所有仓库
type Repositories struct {
	DB      *gorm.DB // 直接访问数据库
	Corpus  *CorpusRepository
	File    *FileRepository
	QA      *QARepository
	ChatLog *ChatLogRepository
	User    *UserRepository
}

// NewRepositories 创建所有仓库
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:      db,
		Corpus:  NewCorpusRepository(db),
		File:    NewFileRepository(db),
		QA:      NewQARepository(db),
		ChatLog: NewChatLogRepository(db),
		User:    NewUserRepository(db),
	}
}
