package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ChatLog 状态
const (
	ChatStatusNormal       = "normal"
	ChatStatusLearned      = "learned"
	ChatStatusUnknown      = "unknown"
	ChatStatusPendingLearn = "pending_learn"
	ChatStatusDiscarded    = "discarded"
)

// SourceRef 一条回答引用的出处
type SourceRef struct {
	ID       int64   `json:"id"`
	Filename string  `json:"filename"`
	Source   string  `json:"source"`
	Score    float64 `json:"score"`
}

// SourceList 按引用顺序排列的出处列表，存为 jsonb
type SourceList []SourceRef

// Value 实现 driver.Valuer
func (s SourceList) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal([]SourceRef{})
	}
	return json.Marshal(s)
}

// Scan 实现 sql.Scanner
func (s *SourceList) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for SourceList: %T", value)
	}

	return json.Unmarshal(data, s)
}

// ChatLog 每次问答落一条记录。status 由答案管线写 normal/learned/unknown，
// 人工操作可再推进到 pending_learn/discarded。
type ChatLog struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Question  string     `gorm:"type:text;not null" json:"question"`
	Answer    string     `gorm:"type:text" json:"answer"`
	Username  string     `gorm:"size:50;index" json:"username"`
	ImagePath string     `gorm:"size:512" json:"image_path,omitempty"`
	Status    string     `gorm:"size:20;index;default:normal" json:"status"`
	Sources   SourceList `gorm:"type:jsonb" json:"sources"`
	Feedback  string     `gorm:"size:20" json:"feedback,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (ChatLog) TableName() string {
	return "chat_logs"
}
