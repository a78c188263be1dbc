// Package retrieval 实现混合检索：向量近邻与关键词子串两路召回后合并。
package retrieval

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/leiqy-max/zz-agent-out/internal/llm"
	"github.com/leiqy-max/zz-agent-out/internal/model"
	"github.com/leiqy-max/zz-agent-out/internal/repository"
)

// Searcher 检索需要的语料库查询能力
type Searcher interface {
	NearestNeighbors(vec []float32, kbType string, k int) ([]repository.ScoredChunk, error)
	SubstringMatch(queryText, kbType string, k int) ([]repository.ScoredChunk, error)
}

// Retriever 混合检索器。
// 距离越小越相似；关键词命中赋合成距离 0，合并时排在向量结果前面。
type Retriever struct {
	corpus   Searcher
	embedder embedding.Embedder
	topK     int
}

// NewRetriever 创建混合检索器
func NewRetriever(corpus Searcher, embedder embedding.Embedder, topK int) *Retriever {
	return &Retriever{corpus: corpus, embedder: embedder, topK: topK}
}

// Retrieve 对同一查询做向量与关键词两路召回并合并。
// kbType 为分区过滤条件，"all" 表示不过滤；
// 合并结果去重后最多返回 topK*2 条。
func (r *Retriever) Retrieve(ctx context.Context, query, kbType string) ([]repository.ScoredChunk, error) {
	if kbType == "" {
		kbType = model.KBTypeAll
	}

	vec, err := llm.EmbedOne(ctx, r.embedder, query)
	if err != nil {
		return nil, err
	}

	vectorHits, err := r.corpus.NearestNeighbors(vec, kbType, r.topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	keywordHits, err := r.corpus.SubstringMatch(query, kbType, r.topK)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	return mergeHits(keywordHits, vectorHits, r.topK*2), nil
}

// mergeHits 关键词命中优先，按 id 去重，截断到 limit。
// 两路都命中的分块保留关键词侧的零距离，让确切命中稳过相似度门槛。
func mergeHits(keywordHits, vectorHits []repository.ScoredChunk, limit int) []repository.ScoredChunk {
	merged := make([]repository.ScoredChunk, 0, len(keywordHits)+len(vectorHits))
	seen := make(map[int64]bool, len(keywordHits)+len(vectorHits))

	for _, hit := range keywordHits {
		if seen[hit.ID] {
			continue
		}
		seen[hit.ID] = true
		merged = append(merged, hit)
	}
	for _, hit := range vectorHits {
		if seen[hit.ID] {
			continue
		}
		seen[hit.ID] = true
		merged = append(merged, hit)
	}

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
