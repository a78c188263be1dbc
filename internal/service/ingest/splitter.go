package ingest

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	"github.com/cloudwego/eino/schema"
)

// opsSeparators 运维文档的分块分隔符，优先按结构化小节切开
var opsSeparators = []string{"\n处理步骤", "\n故障现象", "\n告警说明", "\n注意事项", "\n"}

// SplitText 把抽取后的文本按运维文档结构递归分块
func SplitText(ctx context.Context, text string, chunkSize, overlap int) ([]string, error) {
	splitter, err := recursive.NewSplitter(ctx, &recursive.Config{
		ChunkSize:   chunkSize,
		OverlapSize: overlap,
		Separators:  opsSeparators,
		KeepType:    recursive.KeepTypeNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create splitter: %w", err)
	}

	docs, err := splitter.Transform(ctx, []*schema.Document{{Content: text}})
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}

	chunks := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.Content == "" {
			continue
		}
		chunks = append(chunks, d.Content)
	}
	return chunks, nil
}
