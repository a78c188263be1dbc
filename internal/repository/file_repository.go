package repository

import (
	"gorm.io/gorm"

	"github.com/leiqy-max/zz-agent-out/internal/model"
)

// FileRepository 上传文件记录数据访问
type FileRepository struct {
	db *gorm.DB
}

// NewFileRepository 创建文件仓库
func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Create 创建上传记录
func (r *FileRepository) Create(f *model.UploadedFile) error {
	return r.db.Create(f).Error
}

// GetByID 获取上传记录，不存在时返回 nil
func (r *FileRepository) GetByID(id int64) (*model.UploadedFile, error) {
	var f model.UploadedFile
	err := r.db.Where("id = ?", id).First(&f).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetByPath 按文件路径获取上传记录，不存在时返回 nil
func (r *FileRepository) GetByPath(path string) (*model.UploadedFile, error) {
	var f model.UploadedFile
	err := r.db.Where("file_path = ?", path).First(&f).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListByStatus 按状态列出上传记录
func (r *FileRepository) ListByStatus(status string, offset, limit int) ([]*model.UploadedFile, int64, error) {
	var files []*model.UploadedFile
	var total int64

	query := r.db.Model(&model.UploadedFile{}).Where("status = ?", status)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&files).Error
	return files, total, err
}

// TransitionStatus 条件状态迁移：仅当当前状态为 from 时改为 to。
// 返回是否真的发生了迁移，用于审批终态校验。
func (r *FileRepository) TransitionStatus(id int64, from, to string) (bool, error) {
	result := r.db.Model(&model.UploadedFile{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SearchApproved 按文件名模糊搜索已批准文档
func (r *FileRepository) SearchApproved(keyword string, offset, limit int) ([]*model.UploadedFile, int64, error) {
	var files []*model.UploadedFile
	var total int64

	query := r.db.Model(&model.UploadedFile{}).Where("status = ?", model.StatusApproved)
	if keyword != "" {
		query = query.Where("filename ILIKE ?", "%"+keyword+"%")
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&files).Error
	return files, total, err
}

// HotDocuments 按下载量列出已批准文档
func (r *FileRepository) HotDocuments(limit int) ([]*model.UploadedFile, error) {
	var files []*model.UploadedFile
	err := r.db.Where("status = ?", model.StatusApproved).
		Order("download_count DESC").Limit(limit).Find(&files).Error
	return files, err
}

// IncrementDownloadCount 下载计数加一
func (r *FileRepository) IncrementDownloadCount(id int64) error {
	return r.db.Model(&model.UploadedFile{}).Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("COALESCE(download_count, 0) + 1")).Error
}

// Delete 删除上传记录
func (r *FileRepository) Delete(id int64) error {
	return r.db.Delete(&model.UploadedFile{}, "id = ?", id).Error
}

// DeleteByPath 按文件路径删除上传记录
func (r *FileRepository) DeleteByPath(path string) error {
	return r.db.Delete(&model.UploadedFile{}, "file_path = ?", path).Error
}
