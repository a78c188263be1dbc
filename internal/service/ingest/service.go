package ingest

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/leiqy-max/zz-agent-out/internal/llm"
	"github.com/leiqy-max/zz-agent-out/internal/model"
	"github.com/leiqy-max/zz-agent-out/internal/service/file"
)

// CorpusStore 入库需要的语料库写入能力
type CorpusStore interface {
	ReplaceSource(source string, chunks []*model.Chunk) error
	InsertChunks(chunks []*model.Chunk) error
	DeleteBySource(source string) (int64, error)
}

// Service 入库管线：抽取 -> 分块 -> 向量化 -> 替换写入
type Service struct {
	storage   file.Storage
	corpus    CorpusStore
	embedder  embedding.Embedder
	chunkSize int
	overlap   int
}

func NewService(storage file.Storage, corpus CorpusStore, embedder embedding.Embedder, chunkSize, overlap int) *Service {
	return &Service{
		storage:   storage,
		corpus:    corpus,
		embedder:  embedder,
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// IngestFile 从存储读取文件并入库。
// 同一来源重复入库先删后插，整体在一个事务里完成，
// 失败时已索引内容保持不变。
func (s *Service) IngestFile(ctx context.Context, path string, kbType string) (int, error) {
	reader, err := s.storage.Open(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer reader.Close()

	content, err := ExtractText(ctx, path, reader)
	if err != nil {
		return 0, err
	}

	texts, err := SplitText(ctx, content, s.chunkSize, s.overlap)
	if err != nil {
		return 0, err
	}
	if len(texts) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrEmptyContent, path)
	}

	metadata := model.JSON{
		model.MetaSource:   path,
		model.MetaFilename: filepath.Base(path),
		model.MetaKBType:   kbType,
	}
	chunks, err := s.buildChunks(ctx, texts, metadata)
	if err != nil {
		return 0, err
	}

	if err := s.corpus.ReplaceSource(path, chunks); err != nil {
		return 0, fmt.Errorf("failed to index %s: %w", path, err)
	}

	log.Printf("[ingest] indexed %s: %d chunks (kb_type=%s)", path, len(chunks), kbType)
	return len(chunks), nil
}

// IngestText 直接入库一段文本（问答对等非文件内容），不做来源替换
func (s *Service) IngestText(ctx context.Context, content string, metadata model.JSON) (int, error) {
	if strings.TrimSpace(content) == "" {
		return 0, ErrEmptyContent
	}
	texts, err := SplitText(ctx, content, s.chunkSize, s.overlap)
	if err != nil {
		return 0, err
	}
	if len(texts) == 0 {
		return 0, ErrEmptyContent
	}

	chunks, err := s.buildChunks(ctx, texts, metadata)
	if err != nil {
		return 0, err
	}
	if err := s.corpus.InsertChunks(chunks); err != nil {
		return 0, fmt.Errorf("failed to index text: %w", err)
	}
	return len(chunks), nil
}

// RemoveSource 删除某来源的全部已索引块
func (s *Service) RemoveSource(source string) (int64, error) {
	return s.corpus.DeleteBySource(source)
}

// buildChunks 先批量向量化再组装，任一块向量化失败则整批不写
func (s *Service) buildChunks(ctx context.Context, texts []string, metadata model.JSON) ([]*model.Chunk, error) {
	vectors, err := s.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrEmbedding, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", llm.ErrEmbedding, len(vectors), len(texts))
	}

	chunks := make([]*model.Chunk, 0, len(texts))
	for i, text := range texts {
		meta := make(model.JSON, len(metadata))
		for k, v := range metadata {
			meta[k] = v
		}
		chunks = append(chunks, model.NewChunk(text, meta, llm.ToFloat32(vectors[i])))
	}
	return chunks, nil
}
