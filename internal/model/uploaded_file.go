package model

import "time"

// 审批状态。pending 是唯一可迁出状态，approved/rejected 均为终态。
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// UploadedFile 上传文件记录。入库（分块写入语料库）只发生在 pending→approved 这一次迁移上。
type UploadedFile struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Filename      string    `gorm:"size:255;not null" json:"filename"`
	FilePath      string    `gorm:"size:512;not null;index" json:"file_path"`
	Uploader      string    `gorm:"size:50;not null" json:"uploader"`
	KBType        string    `gorm:"size:20;default:user" json:"kb_type"`
	Status        string    `gorm:"size:20;index;default:pending" json:"status"`
	FileSize      int64     `gorm:"default:0" json:"file_size"`
	DownloadCount int       `gorm:"default:0" json:"download_count"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (UploadedFile) TableName() string {
	return "uploaded_files"
}
