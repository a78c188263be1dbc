package repository

import (
	"gorm.io/gorm"

	"github.com/leiqy-max/zz-agent-out/internal/model"
)

// QARepository 学习问答数据访问
type QARepository struct {
	db *gorm.DB
}

// NewQARepository 创建问答仓库
func NewQARepository(db *gorm.DB) *QARepository {
	return &QARepository{db: db}
}

// Create 创建问答记录
func (r *QARepository) Create(qa *model.LearnedQA) error {
	return r.db.Create(qa).Error
}

// GetByID 获取问答记录，不存在时返回 nil
func (r *QARepository) GetByID(id int64) (*model.LearnedQA, error) {
	var qa model.LearnedQA
	err := r.db.Where("id = ?", id).First(&qa).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &qa, nil
}

// LatestApprovedAnswer 按问题原文精确匹配最近一条已批准答案。
// 未命中返回空串。
func (r *QARepository) LatestApprovedAnswer(question string) (string, error) {
	var qa model.LearnedQA
	err := r.db.Where("question = ? AND status = ?", question, model.StatusApproved).
		Order("created_at DESC").First(&qa).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return qa.Answer, nil
}

// TransitionStatus 条件状态迁移：仅当当前状态为 from 时改为 to
func (r *QARepository) TransitionStatus(id int64, from, to string) (bool, error) {
	result := r.db.Model(&model.LearnedQA{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListByStatus 按状态列出问答记录
func (r *QARepository) ListByStatus(status string, offset, limit int) ([]*model.LearnedQA, int64, error) {
	var items []*model.LearnedQA
	var total int64

	query := r.db.Model(&model.LearnedQA{}).Where("status = ?", status)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// List 列出全部问答记录（学习台账）
func (r *QARepository) List(offset, limit int) ([]*model.LearnedQA, int64, error) {
	var items []*model.LearnedQA
	var total int64

	if err := r.db.Model(&model.LearnedQA{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.Order("id DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}
