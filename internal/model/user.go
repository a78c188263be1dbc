package model

import "time"

// 用户角色
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
	RoleGuest = "guest"
)

// User 登录用户
type User struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username       string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	HashedPassword string    `gorm:"size:255;not null" json:"-"`
	Role           string    `gorm:"size:20;not null" json:"role"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
