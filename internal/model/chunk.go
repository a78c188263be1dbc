package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// 元数据约定字段
const (
	MetaSource   = "source"
	MetaFilename = "filename"
	MetaKBType   = "kb_type"
)

// KB 分区标识
const (
	KBTypeUser  = "user"
	KBTypeAdmin = "admin"
	KBTypeAll   = "all"
)

// Chunk 语料库的原子单元：一段可检索文本及其向量与出处元数据。
// 同一 source 的所有分块在重新入库时被整体删除替换，语料库里不会累积重复分块。
type Chunk struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Content   string          `gorm:"type:text" json:"content"`
	Metadata  JSON            `gorm:"type:jsonb" json:"metadata"`
	Embedding pgvector.Vector `gorm:"type:vector(1024)" json:"-"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (Chunk) TableName() string {
	return "chunks"
}

// NewChunk 构造一个待入库分块
func NewChunk(content string, metadata JSON, vec []float32) *Chunk {
	return &Chunk{
		Content:   content,
		Metadata:  metadata,
		Embedding: pgvector.NewVector(vec),
	}
}

// Source 返回分块的来源路径（或来源记号）
func (c *Chunk) Source() string {
	return c.Metadata.GetString(MetaSource)
}

// KBType 返回分块所属分区；空串表示对所有分区可见
func (c *Chunk) KBType() string {
	return c.Metadata.GetString(MetaKBType)
}

// CorpusMeta 记录语料库当前向量空间的来源。
// 不同 embedding 提供方的向量不可比，切换提供方或维度必须整库重嵌；
// 启动时与配置比对，不一致则拒绝提供检索。
type CorpusMeta struct {
	ID                int       `gorm:"primaryKey" json:"id"`
	EmbeddingProvider string    `gorm:"size:50" json:"embedding_provider"`
	Dimension         int       `json:"dimension"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (CorpusMeta) TableName() string {
	return "corpus_meta"
}
