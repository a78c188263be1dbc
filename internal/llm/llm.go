// Package llm 提供对话与向量化能力的统一工厂。
// 提供方差异只存在于本包：管线代码一律面向 eino 的
// model.ChatModel / embedding.Embedder 接口编程。
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/embedding/dashscope"
	openaiembed "github.com/cloudwego/eino-ext/components/embedding/openai"
	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"

	"github.com/leiqy-max/zz-agent-out/internal/config"
)

// 生成与向量化失败的哨兵错误，调用方用 errors.Is 判别
var (
	ErrGeneration = errors.New("llm: generation failed")
	ErrEmbedding  = errors.New("llm: embedding failed")
)

// NewChatModel 按配置创建对话模型
func NewChatModel(ctx context.Context, cfg *config.Config) (model.ChatModel, error) {
	aiCfg := cfg.AI

	switch aiCfg.Provider {
	case "mock":
		return NewMockChatModel(), nil
	case "openai", "deepseek":
		// DeepSeek 走 OpenAI 兼容接口，只是 baseURL/model 不同
	case "alibaba", "qwen", "dashscope":
		// 百炼的 OpenAI 兼容端点
		if aiCfg.BaseURL == "" {
			aiCfg.BaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
		}
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", aiCfg.Provider)
	}

	if aiCfg.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for provider: %s", aiCfg.Provider)
	}

	modelName := aiCfg.Model
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}
	temperature := float32(aiCfg.Temperature)

	return openaimodel.NewChatModel(ctx, &openaimodel.ChatModelConfig{
		APIKey:      aiCfg.APIKey,
		BaseURL:     aiCfg.BaseURL,
		Model:       modelName,
		Temperature: &temperature,
	})
}

// NewEmbedder 按配置创建向量化器。
// 不同提供方的向量空间互不兼容，切换提供方必须整库重嵌（见 service 包的启动校验）。
func NewEmbedder(ctx context.Context, cfg *config.Config) (embedding.Embedder, error) {
	embCfg := cfg.AI.Embedding

	switch embCfg.Provider {
	case "mock":
		return NewMockEmbedder(embCfg.Dimensions), nil

	case "alibaba", "qwen", "dashscope":
		if embCfg.APIKey == "" {
			return nil, fmt.Errorf("embedding api_key is required for provider: %s", embCfg.Provider)
		}
		dsCfg := &dashscope.EmbeddingConfig{
			APIKey: embCfg.APIKey,
			Model:  embCfg.Model,
		}
		if embCfg.Timeout > 0 {
			dsCfg.Timeout = time.Duration(embCfg.Timeout) * time.Second
		}
		if embCfg.Dimensions > 0 {
			dsCfg.Dimensions = &embCfg.Dimensions
		}
		return dashscope.NewEmbedder(ctx, dsCfg)

	case "openai", "":
		if embCfg.APIKey == "" {
			return nil, fmt.Errorf("embedding api_key is required for provider: %s", embCfg.Provider)
		}
		oaCfg := &openaiembed.EmbeddingConfig{
			APIKey:  embCfg.APIKey,
			BaseURL: embCfg.BaseURL,
			Model:   embCfg.Model,
		}
		if embCfg.Timeout > 0 {
			oaCfg.Timeout = time.Duration(embCfg.Timeout) * time.Second
		}
		if embCfg.Dimensions > 0 {
			oaCfg.Dimensions = &embCfg.Dimensions
		}
		return openaiembed.NewEmbedder(ctx, oaCfg)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", embCfg.Provider)
	}
}

// EmbedOne 向量化单条文本，并转为 pgvector 使用的 float32 切片
func EmbedOne(ctx context.Context, embedder embedding.Embedder, text string) ([]float32, error) {
	vectors, err := embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 vector, got %d", ErrEmbedding, len(vectors))
	}
	return ToFloat32(vectors[0]), nil
}

// ToFloat32 转换 eino 的 float64 向量为 pgvector 的 float32 向量
func ToFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}
