package llm

import (
	"context"
	"math"
	"testing"
)

// ========== Mock 向量化器测试 ==========

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(64)

	a, err := e.EmbedStrings(context.Background(), []string{"数据库连接超时"})
	if err != nil {
		t.Fatalf("EmbedStrings() error = %v", err)
	}
	b, _ := e.EmbedStrings(context.Background(), []string{"数据库连接超时"})

	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("same text should embed identically, differs at %d", i)
		}
	}
}

func TestMockEmbedder_Dimensions(t *testing.T) {
	tests := []struct {
		name string
		dim  int
		want int
	}{
		{"显式维度", 128, 128},
		{"非法维度回退", 0, 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewMockEmbedder(tt.dim)
			vecs, err := e.EmbedStrings(context.Background(), []string{"q"})
			if err != nil {
				t.Fatalf("EmbedStrings() error = %v", err)
			}
			if len(vecs[0]) != tt.want {
				t.Errorf("dim = %d, want %d", len(vecs[0]), tt.want)
			}
		})
	}
}

func TestMockEmbedder_UnitNorm(t *testing.T) {
	e := NewMockEmbedder(32)
	vecs, err := e.EmbedStrings(context.Background(), []string{"磁盘空间不足"})
	if err != nil {
		t.Fatalf("EmbedStrings() error = %v", err)
	}

	var norm float64
	for _, v := range vecs[0] {
		norm += v * v
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 1e-9 {
		t.Errorf("norm = %f, want 1.0", math.Sqrt(norm))
	}
}

func TestMockEmbedder_DistinctTexts(t *testing.T) {
	e := NewMockEmbedder(32)
	vecs, err := e.EmbedStrings(context.Background(), []string{"文本甲", "文本乙"})
	if err != nil {
		t.Fatalf("EmbedStrings() error = %v", err)
	}

	same := true
	for i := range vecs[0] {
		if vecs[0][i] != vecs[1][i] {
			same = false
			break
		}
	}
	if same {
		t.Error("distinct texts should not embed identically")
	}
}

// ========== EmbedOne 测试 ==========

func TestEmbedOne(t *testing.T) {
	vec, err := EmbedOne(context.Background(), NewMockEmbedder(16), "q")
	if err != nil {
		t.Fatalf("EmbedOne() error = %v", err)
	}
	if len(vec) != 16 {
		t.Errorf("len = %d, want 16", len(vec))
	}
}
