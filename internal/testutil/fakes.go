// Package testutil 提供测试辅助工具
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/leiqy-max/zz-agent-out/internal/model"
)

// MemStorage 内存文件存储，实现 file.Storage
type MemStorage struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemStorage 创建内存存储
func NewMemStorage() *MemStorage {
	return &MemStorage{files: make(map[string][]byte)}
}

// Save 保存文件内容
func (m *MemStorage) Save(_ context.Context, path string, reader io.Reader, _ int64) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = data
	return nil
}

// Open 读取文件内容
func (m *MemStorage) Open(_ context.Context, path string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete 删除文件
func (m *MemStorage) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

// List 列出指定前缀下的全部路径（排序后返回，便于断言）
func (m *MemStorage) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var paths []string
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Size 返回文件大小
func (m *MemStorage) Size(_ context.Context, path string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path]
	if !ok {
		return 0, fmt.Errorf("file not found: %s", path)
	}
	return int64(len(data)), nil
}

// Put 直接写入一个文件，测试中预置内容用
func (m *MemStorage) Put(path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = []byte(content)
}

// FakeCorpus 内存语料库，实现入库与对账需要的写入接口
type FakeCorpus struct {
	mu     sync.Mutex
	nextID int64
	Chunks []*model.Chunk

	// ReplaceErr 非 nil 时 ReplaceSource 直接失败，用于验证失败不落库
	ReplaceErr error
}

// NewFakeCorpus 创建内存语料库
func NewFakeCorpus() *FakeCorpus {
	return &FakeCorpus{nextID: 1}
}

// ReplaceSource 删除同来源分块后整批写入
func (f *FakeCorpus) ReplaceSource(source string, chunks []*model.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReplaceErr != nil {
		return f.ReplaceErr
	}
	kept := f.Chunks[:0]
	for _, c := range f.Chunks {
		if c.Source() != source {
			kept = append(kept, c)
		}
	}
	f.Chunks = kept
	f.insertLocked(chunks)
	return nil
}

// InsertChunks 追加写入分块
func (f *FakeCorpus) InsertChunks(chunks []*model.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertLocked(chunks)
	return nil
}

func (f *FakeCorpus) insertLocked(chunks []*model.Chunk) {
	for _, c := range chunks {
		c.ID = f.nextID
		f.nextID++
		f.Chunks = append(f.Chunks, c)
	}
}

// DeleteBySource 删除某来源全部分块
func (f *FakeCorpus) DeleteBySource(source string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	kept := f.Chunks[:0]
	for _, c := range f.Chunks {
		if c.Source() == source {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	f.Chunks = kept
	return removed, nil
}

// DistinctSources 返回以 prefix 开头的去重来源集合
func (f *FakeCorpus) DistinctSources(prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	var sources []string
	for _, c := range f.Chunks {
		s := c.Source()
		if s == "" || seen[s] || !strings.HasPrefix(s, prefix) {
			continue
		}
		seen[s] = true
		sources = append(sources, s)
	}
	sort.Strings(sources)
	return sources, nil
}

// BySource 返回某来源的全部分块
func (f *FakeCorpus) BySource(source string) []*model.Chunk {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Chunk
	for _, c := range f.Chunks {
		if c.Source() == source {
			out = append(out, c)
		}
	}
	return out
}
