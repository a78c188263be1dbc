package repository

import (
	"strings"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/leiqy-max/zz-agent-out/internal/model"
)

// CorpusRepository 语料库数据访问。
// 分区过滤约定：kb_type 等于目标分区的行，或没有 kb_type 的行（对所有分区可见）；
// "all" 不过滤。
type CorpusRepository struct {
	db *gorm.DB
}

// NewCorpusRepository 创建语料库仓库
func NewCorpusRepository(db *gorm.DB) *CorpusRepository {
	return &CorpusRepository{db: db}
}

// ScoredChunk 带距离的检索结果行
type ScoredChunk struct {
	ID       int64      `json:"id"`
	Content  string     `json:"content"`
	Metadata model.JSON `json:"metadata"`
	Distance float64    `json:"distance"`
}

// ReplaceSource 以单个事务完成同源分块的删除与批量写入。
// 重复入库同一 source 不会累积重复分块。
func (r *CorpusRepository) ReplaceSource(source string, chunks []*model.Chunk) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("metadata->>'source' = ?", source).Delete(&model.Chunk{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		return tx.CreateInBatches(chunks, 100).Error
	})
}

// InsertChunks 批量写入分块（不删除既有同源分块）
func (r *CorpusRepository) InsertChunks(chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.db.CreateInBatches(chunks, 100).Error
}

// DeleteBySource 删除某一来源的所有分块，返回删除数
func (r *CorpusRepository) DeleteBySource(source string) (int64, error) {
	res := r.db.Where("metadata->>'source' = ?", source).Delete(&model.Chunk{})
	return res.RowsAffected, res.Error
}

// NearestNeighbors 向量近邻检索，按距离升序（越小越相似）
func (r *CorpusRepository) NearestNeighbors(vec []float32, kbType string, k int) ([]ScoredChunk, error) {
	var rows []ScoredChunk

	query := "SELECT id, content, metadata, embedding <-> ? AS distance FROM chunks"
	args := []any{pgvector.NewVector(vec)}
	if kbType != model.KBTypeAll {
		query += " WHERE metadata->>'kb_type' = ? OR metadata->>'kb_type' IS NULL"
		args = append(args, kbType)
	}
	query += " ORDER BY distance ASC LIMIT ?"
	args = append(args, k)

	err := r.db.Raw(query, args...).Scan(&rows).Error
	return rows, err
}

// SubstringMatch 关键词子串检索（不区分大小写），命中赋合成距离 0
func (r *CorpusRepository) SubstringMatch(queryText, kbType string, k int) ([]ScoredChunk, error) {
	var rows []ScoredChunk

	query := "SELECT id, content, metadata, 0.0::float AS distance FROM chunks WHERE content ILIKE ?"
	args := []any{"%" + queryText + "%"}
	if kbType != model.KBTypeAll {
		query += " AND (metadata->>'kb_type' = ? OR metadata->>'kb_type' IS NULL)"
		args = append(args, kbType)
	}
	query += " LIMIT ?"
	args = append(args, k)

	err := r.db.Raw(query, args...).Scan(&rows).Error
	return rows, err
}

// DistinctSources 返回语料库中 source 以 prefix 开头的去重来源集合
func (r *CorpusRepository) DistinctSources(prefix string) ([]string, error) {
	var sources []string
	err := r.db.Model(&model.Chunk{}).
		Distinct("metadata->>'source'").
		Where("metadata->>'source' IS NOT NULL").
		Pluck("metadata->>'source'", &sources).Error
	if err != nil {
		return nil, err
	}

	if prefix == "" {
		return sources, nil
	}
	filtered := sources[:0]
	for _, s := range sources {
		if strings.HasPrefix(s, prefix) {
			filtered = append(filtered, s)
		}
	}
	return filtered, nil
}

// CountBySource 统计某来源的分块数
func (r *CorpusRepository) CountBySource(source string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Chunk{}).Where("metadata->>'source' = ?", source).Count(&count).Error
	return count, err
}

// GetChunkByID 获取单个分块
func (r *CorpusRepository) GetChunkByID(id int64) (*model.Chunk, error) {
	var chunk model.Chunk
	err := r.db.Where("id = ?", id).First(&chunk).Error
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// GetMeta 获取语料库向量空间标记，没有则返回 nil
func (r *CorpusRepository) GetMeta() (*model.CorpusMeta, error) {
	var meta model.CorpusMeta
	err := r.db.Where("id = ?", 1).First(&meta).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// SaveMeta 写入语料库向量空间标记（单行）
func (r *CorpusRepository) SaveMeta(provider string, dimension int) error {
	meta := &model.CorpusMeta{ID: 1, EmbeddingProvider: provider, Dimension: dimension}
	return r.db.Save(meta).Error
}
