package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leiqy-max/zz-agent-out/internal/llm"
	"github.com/leiqy-max/zz-agent-out/internal/model"
	"github.com/leiqy-max/zz-agent-out/internal/testutil"
)

func newTestService(storage *testutil.MemStorage, corpus *testutil.FakeCorpus) *Service {
	return NewService(storage, corpus, llm.NewMockEmbedder(64), 500, 100)
}

// ========== 文件入库测试 ==========

func TestIngestFile(t *testing.T) {
	storage := testutil.NewMemStorage()
	corpus := testutil.NewFakeCorpus()
	storage.Put("uploads/disk.txt", "磁盘告警处理手册\n处理步骤\n1. 登录主机检查磁盘占用")

	svc := newTestService(storage, corpus)
	n, err := svc.IngestFile(context.Background(), "uploads/disk.txt", model.KBTypeUser)
	if err != nil {
		t.Fatalf("IngestFile() error = %v", err)
	}
	if n == 0 {
		t.Fatal("IngestFile() indexed 0 chunks")
	}

	chunks := corpus.BySource("uploads/disk.txt")
	if len(chunks) != n {
		t.Fatalf("indexed %d chunks, stored %d", n, len(chunks))
	}
	for _, c := range chunks {
		if c.Source() != "uploads/disk.txt" {
			t.Errorf("chunk source = %q", c.Source())
		}
		if c.KBType() != model.KBTypeUser {
			t.Errorf("chunk kb_type = %q, want %q", c.KBType(), model.KBTypeUser)
		}
		if c.Metadata.GetString(model.MetaFilename) != "disk.txt" {
			t.Errorf("chunk filename = %q", c.Metadata.GetString(model.MetaFilename))
		}
		if len(c.Embedding.Slice()) != 64 {
			t.Errorf("embedding dimension = %d, want 64", len(c.Embedding.Slice()))
		}
	}
}

// 同一来源重复入库不累积旧分块
func TestIngestFile_ReplaceIsIdempotent(t *testing.T) {
	storage := testutil.NewMemStorage()
	corpus := testutil.NewFakeCorpus()
	storage.Put("uploads/cpu.txt", "CPU 告警处理：先看 top 再看日志")

	svc := newTestService(storage, corpus)
	ctx := context.Background()

	n1, err := svc.IngestFile(ctx, "uploads/cpu.txt", model.KBTypeUser)
	if err != nil {
		t.Fatalf("first IngestFile() error = %v", err)
	}

	storage.Put("uploads/cpu.txt", "CPU 告警处理（修订版）：先确认负载来源")
	n2, err := svc.IngestFile(ctx, "uploads/cpu.txt", model.KBTypeUser)
	if err != nil {
		t.Fatalf("second IngestFile() error = %v", err)
	}

	got := corpus.BySource("uploads/cpu.txt")
	if len(got) != n2 {
		t.Errorf("stored %d chunks after re-ingest, want %d (first run %d)", len(got), n2, n1)
	}
	for _, c := range got {
		if !strings.Contains(c.Content, "修订版") {
			t.Errorf("stale chunk survived re-ingest: %q", c.Content)
		}
	}
}

func TestIngestFile_EmptyFile(t *testing.T) {
	storage := testutil.NewMemStorage()
	corpus := testutil.NewFakeCorpus()
	storage.Put("uploads/blank.txt", "   \n\n")

	svc := newTestService(storage, corpus)
	_, err := svc.IngestFile(context.Background(), "uploads/blank.txt", model.KBTypeUser)
	if !errors.Is(err, ErrEmptyContent) {
		t.Errorf("IngestFile() error = %v, want ErrEmptyContent", err)
	}
	if len(corpus.Chunks) != 0 {
		t.Errorf("empty file produced %d chunks", len(corpus.Chunks))
	}
}

func TestIngestFile_MissingFile(t *testing.T) {
	svc := newTestService(testutil.NewMemStorage(), testutil.NewFakeCorpus())
	_, err := svc.IngestFile(context.Background(), "uploads/nope.txt", model.KBTypeUser)
	if err == nil {
		t.Error("IngestFile() with missing file should fail")
	}
}

// 写入失败时不残留半成品
func TestIngestFile_StoreFailure(t *testing.T) {
	storage := testutil.NewMemStorage()
	corpus := testutil.NewFakeCorpus()
	corpus.ReplaceErr = errors.New("db down")
	storage.Put("uploads/a.txt", "一段正常内容")

	svc := newTestService(storage, corpus)
	_, err := svc.IngestFile(context.Background(), "uploads/a.txt", model.KBTypeUser)
	if err == nil {
		t.Fatal("IngestFile() should propagate store error")
	}
	if len(corpus.Chunks) != 0 {
		t.Errorf("failed ingest left %d chunks", len(corpus.Chunks))
	}
}

// ========== 文本入库测试 ==========

func TestIngestText(t *testing.T) {
	corpus := testutil.NewFakeCorpus()
	svc := newTestService(testutil.NewMemStorage(), corpus)

	meta := model.JSON{
		model.MetaSource:   model.SourceLearnedQA,
		model.MetaFilename: "运维问答",
	}
	n, err := svc.IngestText(context.Background(), "问题：如何清理磁盘\n答案：删除过期日志", meta)
	if err != nil {
		t.Fatalf("IngestText() error = %v", err)
	}
	if n == 0 {
		t.Fatal("IngestText() indexed 0 chunks")
	}
	if got := corpus.BySource(model.SourceLearnedQA); len(got) != n {
		t.Errorf("stored %d chunks, want %d", len(got), n)
	}
}

// 问答入库是追加而不是替换，多条问答共享同一来源记号
func TestIngestText_Appends(t *testing.T) {
	corpus := testutil.NewFakeCorpus()
	svc := newTestService(testutil.NewMemStorage(), corpus)
	ctx := context.Background()
	meta := model.JSON{model.MetaSource: model.SourceLearnedQA}

	if _, err := svc.IngestText(ctx, "问题：A\n答案：a", meta); err != nil {
		t.Fatalf("IngestText() error = %v", err)
	}
	if _, err := svc.IngestText(ctx, "问题：B\n答案：b", meta); err != nil {
		t.Fatalf("IngestText() error = %v", err)
	}

	if got := corpus.BySource(model.SourceLearnedQA); len(got) != 2 {
		t.Errorf("stored %d chunks, want 2", len(got))
	}
}

func TestIngestText_Empty(t *testing.T) {
	svc := newTestService(testutil.NewMemStorage(), testutil.NewFakeCorpus())
	_, err := svc.IngestText(context.Background(), "   ", model.JSON{})
	if !errors.Is(err, ErrEmptyContent) {
		t.Errorf("IngestText() error = %v, want ErrEmptyContent", err)
	}
}

// ========== 来源删除测试 ==========

func TestRemoveSource(t *testing.T) {
	storage := testutil.NewMemStorage()
	corpus := testutil.NewFakeCorpus()
	storage.Put("uploads/x.txt", "内容 X")
	storage.Put("uploads/y.txt", "内容 Y")

	svc := newTestService(storage, corpus)
	ctx := context.Background()
	if _, err := svc.IngestFile(ctx, "uploads/x.txt", model.KBTypeUser); err != nil {
		t.Fatalf("IngestFile() error = %v", err)
	}
	if _, err := svc.IngestFile(ctx, "uploads/y.txt", model.KBTypeUser); err != nil {
		t.Fatalf("IngestFile() error = %v", err)
	}

	removed, err := svc.RemoveSource("uploads/x.txt")
	if err != nil {
		t.Fatalf("RemoveSource() error = %v", err)
	}
	if removed == 0 {
		t.Error("RemoveSource() removed 0 chunks")
	}
	if got := corpus.BySource("uploads/x.txt"); len(got) != 0 {
		t.Errorf("source x still has %d chunks", len(got))
	}
	if got := corpus.BySource("uploads/y.txt"); len(got) == 0 {
		t.Error("source y was removed unexpectedly")
	}
}
