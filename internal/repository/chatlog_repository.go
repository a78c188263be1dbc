package repository

import (
	"gorm.io/gorm"

	"github.com/leiqy-max/zz-agent-out/internal/model"
)

// ChatLogRepository 问答日志数据访问
type ChatLogRepository struct {
	db *gorm.DB
}

// NewChatLogRepository 创建问答日志仓库
func NewChatLogRepository(db *gorm.DB) *ChatLogRepository {
	return &ChatLogRepository{db: db}
}

// Create 写入一条问答日志
func (r *ChatLogRepository) Create(logRow *model.ChatLog) error {
	return r.db.Create(logRow).Error
}

// GetByID 获取问答日志，不存在时返回 nil
func (r *ChatLogRepository) GetByID(id int64) (*model.ChatLog, error) {
	var row model.ChatLog
	err := r.db.Where("id = ?", id).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List 按时间倒序分页列出全部日志
func (r *ChatLogRepository) List(offset, limit int) ([]*model.ChatLog, int64, error) {
	var rows []*model.ChatLog
	var total int64

	if err := r.db.Model(&model.ChatLog{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error
	return rows, total, err
}

// ListByStatus 按状态分页列出日志
func (r *ChatLogRepository) ListByStatus(status string, offset, limit int) ([]*model.ChatLog, int64, error) {
	var rows []*model.ChatLog
	var total int64

	query := r.db.Model(&model.ChatLog{}).Where("status = ?", status)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error
	return rows, total, err
}

// UpdateStatus 无条件更新日志状态（人工操作：学习、挂起、丢弃）
func (r *ChatLogRepository) UpdateStatus(id int64, status string) (bool, error) {
	result := r.db.Model(&model.ChatLog{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateFeedback 记录用户反馈
func (r *ChatLogRepository) UpdateFeedback(id int64, feedback string) (bool, error) {
	result := r.db.Model(&model.ChatLog{}).Where("id = ?", id).Update("feedback", feedback)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountByUser 统计某用户的提问数（访客限额用）
func (r *ChatLogRepository) CountByUser(username string) (int64, error) {
	var count int64
	err := r.db.Model(&model.ChatLog{}).Where("username = ?", username).Count(&count).Error
	return count, err
}

// HotQuestions 按提问频次取最热问题
func (r *ChatLogRepository) HotQuestions(limit int) ([]string, error) {
	var questions []string
	err := r.db.Model(&model.ChatLog{}).
		Select("question").
		Group("question").
		Order("COUNT(*) DESC").
		Limit(limit).
		Pluck("question", &questions).Error
	return questions, err
}
