package llm

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockChatModel 离线/内网兜底的对话模型
type MockChatModel struct{}

// NewMockChatModel 创建 mock 对话模型
func NewMockChatModel() *MockChatModel {
	return &MockChatModel{}
}

// Generate 返回固定回复
func (m *MockChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return &schema.Message{
		Role:    schema.Assistant,
		Content: "这是运维助手的离线回复，当前大模型运行在兜底模式。",
	}, nil
}

// Stream mock 模型不支持流式
func (m *MockChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	sr, sw := schema.Pipe[*schema.Message](1)
	msg, _ := m.Generate(ctx, messages)
	sw.Send(msg, nil)
	sw.Close()
	return sr, nil
}

// BindTools mock 模型忽略工具
func (m *MockChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

// MockEmbedder 确定性向量生成器：同一文本永远得到同一向量，
// 维度与真实部署一致，便于测试与内网联调。
type MockEmbedder struct {
	dim int
}

// NewMockEmbedder 创建 mock 向量化器
func NewMockEmbedder(dim int) *MockEmbedder {
	if dim <= 0 {
		dim = 1024
	}
	return &MockEmbedder{dim: dim}
}

// Dimensions 返回向量维度
func (m *MockEmbedder) Dimensions() int {
	return m.dim
}

// EmbedStrings 基于 FNV 哈希生成单位化的确定性向量
func (m *MockEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = m.embed(text)
	}
	return vectors, nil
}

func (m *MockEmbedder) embed(text string) []float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float64, m.dim)
	var norm float64
	for i := range vec {
		// xorshift64，由文本哈希播种
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		v := float64(int64(seed%2000)-1000) / 1000.0
		vec[i] = v
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
