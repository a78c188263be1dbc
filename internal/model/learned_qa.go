package model

import "time"

// 学习问答的语料来源记号
const (
	SourceLearnedQA = "learned_qa"
	SourceManualQA  = "manual_qa"
)

// LearnedQA 人工沉淀的问答对。管理员录入直接 approved 并立即入库；
// 普通用户录入为 pending，待管理员审批后入库。
type LearnedQA struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	Username  string    `gorm:"size:50" json:"username"`
	Status    string    `gorm:"size:20;index;default:approved" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (LearnedQA) TableName() string {
	return "learned_qa"
}
