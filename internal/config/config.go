package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	AI       AIConfig
	Storage  StorageConfig
	KB       KBConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
	JWTSecret    string
	TokenTTL     int // 分钟
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AIConfig 大模型配置
type AIConfig struct {
	Provider    string // openai / dashscope / mock
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string // 携带图片时切换的模型
	Temperature float64
	Timeout     int
	Embedding   EmbeddingConfig
}

// EmbeddingConfig Embedding 配置
type EmbeddingConfig struct {
	Provider   string // openai / dashscope / mock
	Model      string
	APIKey     string
	BaseURL    string
	Timeout    int
	Dimensions int
}

// StorageConfig 文件存储配置
type StorageConfig struct {
	Type      string // local / minio
	UploadDir string // 上传文件的逻辑目录（对账基准）
	Local     LocalStorageConfig
	MinIO     MinIOStorageConfig
}

// LocalStorageConfig 本地存储配置
type LocalStorageConfig struct {
	BasePath string
}

// MinIOStorageConfig MinIO 存储配置
type MinIOStorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// KBConfig 知识库与检索配置
type KBConfig struct {
	ChunkSize           int
	ChunkOverlap        int
	TopK                int
	SimilarityThreshold float64
	MaxUploadSize       int64 // 字节
	GuestQuestionLimit  int
	HistorySize         int
	HistoryFile         string
	ImageDir            string
}

var globalConfig *Config

// Load 加载配置
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 环境变量
	v.SetEnvPrefix("OPS_AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded")
	}
	return globalConfig
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "ops-agent")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", true)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 120)
	v.SetDefault("server.tokenTTL", 720)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "ops_agent")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxLifetime", 300)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// AI
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.baseUrl", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.visionModel", "gpt-4o")
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.timeout", 60)
	v.SetDefault("ai.embedding.provider", "openai")
	v.SetDefault("ai.embedding.model", "text-embedding-3-small")
	v.SetDefault("ai.embedding.dimensions", 1024)
	v.SetDefault("ai.embedding.timeout", 30)

	// Storage
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.uploadDir", "uploads")
	v.SetDefault("storage.local.basePath", "./data")

	// KB
	v.SetDefault("kb.chunkSize", 500)
	v.SetDefault("kb.chunkOverlap", 100)
	v.SetDefault("kb.topK", 3)
	v.SetDefault("kb.similarityThreshold", 0.8)
	v.SetDefault("kb.maxUploadSize", 100*1024*1024)
	v.SetDefault("kb.guestQuestionLimit", 5)
	v.SetDefault("kb.historySize", 500)
	v.SetDefault("kb.historyFile", "./data/question_history.json")
	v.SetDefault("kb.imageDir", "./data/user_images")
}
