// Package database 负责数据库初始化：连接池、pgvector 扩展、建表与默认用户。
package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/leiqy-max/zz-agent-out/internal/config"
	"github.com/leiqy-max/zz-agent-out/internal/model"
)

// DB 数据库封装
type DB struct {
	*gorm.DB
}

// New 创建数据库连接并完成迁移
func New(cfg *config.Config) (*DB, error) {
	logLevel := gormlogger.Silent
	if cfg.App.Debug {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}

	// 连接池配置
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.MaxLifetime) * time.Second)

	// 健康检查
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrate(db, cfg); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	if err := seedUsers(db); err != nil {
		log.Printf("Warning: failed to seed default users: %v", err)
	}

	return &DB{DB: db}, nil
}

// Close 关闭数据库连接
func (d *DB) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// migrate 启用 pgvector 并建表。chunks 表用原生 SQL 建，
// vector 列维度取自 embedding 配置。
func migrate(db *gorm.DB, cfg *config.Config) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}

	dim := cfg.AI.Embedding.Dimensions
	if dim <= 0 {
		dim = 1024
	}
	createChunks := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS chunks (
			id BIGSERIAL PRIMARY KEY,
			content TEXT,
			metadata JSONB,
			embedding vector(%d),
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`, dim)
	if err := db.Exec(createChunks).Error; err != nil {
		return fmt.Errorf("failed to create chunks table: %w", err)
	}

	return db.AutoMigrate(model.AllModels...)
}

// seedUsers 创建默认管理员和普通用户（仅当不存在时）
func seedUsers(db *gorm.DB) error {
	defaults := []struct {
		username string
		password string
		role     string
	}{
		{"admin", "admin123", model.RoleAdmin},
		{"user", "user123", model.RoleUser},
	}

	for _, d := range defaults {
		var count int64
		if err := db.Model(&model.User{}).Where("username = ?", d.username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(d.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user := &model.User{
			Username:       d.username,
			HashedPassword: string(hashed),
			Role:           d.role,
		}
		if err := db.Create(user).Error; err != nil {
			return err
		}
		log.Printf("Created default %s user", d.role)
	}

	return nil
}
