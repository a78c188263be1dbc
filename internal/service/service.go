// Package service 组装各业务服务。
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leiqy-max/zz-agent-out/internal/config"
	"github.com/leiqy-max/zz-agent-out/internal/llm"
	"github.com/leiqy-max/zz-agent-out/internal/repository"
	"github.com/leiqy-max/zz-agent-out/internal/service/answer"
	"github.com/leiqy-max/zz-agent-out/internal/service/approval"
	"github.com/leiqy-max/zz-agent-out/internal/service/auth"
	"github.com/leiqy-max/zz-agent-out/internal/service/challenge"
	"github.com/leiqy-max/zz-agent-out/internal/service/file"
	"github.com/leiqy-max/zz-agent-out/internal/service/history"
	"github.com/leiqy-max/zz-agent-out/internal/service/ingest"
	"github.com/leiqy-max/zz-agent-out/internal/service/retrieval"
)

// Services 服务集合
type Services struct {
	Answer    *answer.Service
	Approval  *approval.Service
	Ingest    *ingest.Service
	Retriever *retrieval.Retriever
	Auth      *auth.Service
	Challenge *challenge.Store
	History   *history.Buffer
	Hot       *history.Hot
	Storage   file.Storage

	Config *config.Config
	Repo   *repository.Repositories
}

// NewServices 创建所有服务
func NewServices(repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client) (*Services, error) {
	ctx := context.Background()

	// 语料库向量空间必须与当前 embedding 配置一致，否则拒绝启动
	if err := ensureEmbeddingSpace(repo.Corpus, cfg); err != nil {
		return nil, err
	}

	chatModel, err := llm.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	embedder, err := llm.NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	storage, err := newStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	historyBuf := history.NewBuffer(cfg.KB.HistorySize, cfg.KB.HistoryFile)

	ingestSvc := ingest.NewService(storage, repo.Corpus, embedder, cfg.KB.ChunkSize, cfg.KB.ChunkOverlap)
	retriever := retrieval.NewRetriever(repo.Corpus, embedder, cfg.KB.TopK)
	answerSvc := answer.NewService(chatModel, retriever, repo.QA, repo.ChatLog, historyBuf,
		cfg.AI.VisionModel, cfg.KB.SimilarityThreshold, cfg.KB.GuestQuestionLimit)
	approvalSvc := approval.NewService(storage, repo.File, repo.QA, repo.ChatLog, repo.Corpus,
		ingestSvc, cfg.Storage.UploadDir, cfg.KB.MaxUploadSize)
	authSvc := auth.NewService(repo.User, cfg.Server.JWTSecret,
		time.Duration(cfg.Server.TokenTTL)*time.Minute)

	return &Services{
		Answer:    answerSvc,
		Approval:  approvalSvc,
		Ingest:    ingestSvc,
		Retriever: retriever,
		Auth:      authSvc,
		Challenge: challenge.NewStore(redisClient),
		History:   historyBuf,
		Hot:       history.NewHot(repo.ChatLog, historyBuf),
		Storage:   storage,

		Config: cfg,
		Repo:   repo,
	}, nil
}

// newStorage 按配置创建文件存储
func newStorage(cfg *config.Config) (file.Storage, error) {
	switch file.StorageType(cfg.Storage.Type) {
	case file.StorageTypeMinIO:
		return file.NewMinIOStorage(&file.MinIOConfig{
			Endpoint:   cfg.Storage.MinIO.Endpoint,
			AccessKey:  cfg.Storage.MinIO.AccessKey,
			SecretKey:  cfg.Storage.MinIO.SecretKey,
			BucketName: cfg.Storage.MinIO.Bucket,
			UseSSL:     cfg.Storage.MinIO.UseSSL,
		})
	case file.StorageTypeLocal, "":
		return file.NewLocalStorage(cfg.Storage.Local.BasePath)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

// ensureEmbeddingSpace 启动时核对语料库的向量空间标记。
// 换 embedding 提供方或维度后旧向量不可比，必须清库重嵌而不是默默混用。
func ensureEmbeddingSpace(corpus *repository.CorpusRepository, cfg *config.Config) error {
	provider := cfg.AI.Embedding.Provider
	dimension := cfg.AI.Embedding.Dimensions

	meta, err := corpus.GetMeta()
	if err != nil {
		return fmt.Errorf("failed to load corpus meta: %w", err)
	}
	if meta == nil {
		if err := corpus.SaveMeta(provider, dimension); err != nil {
			return fmt.Errorf("failed to save corpus meta: %w", err)
		}
		log.Printf("[service] corpus embedding space registered: %s/%d", provider, dimension)
		return nil
	}

	if meta.EmbeddingProvider != provider || meta.Dimension != dimension {
		return fmt.Errorf("corpus was embedded with %s/%d but config is %s/%d: re-embed the corpus before switching",
			meta.EmbeddingProvider, meta.Dimension, provider, dimension)
	}
	return nil
}
