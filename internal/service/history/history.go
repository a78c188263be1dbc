// Package history 维护最近提问的环形缓冲与热门问题榜。
package history

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Buffer 最近提问缓冲，新问题排在最前，超出容量丢弃最旧的。
// 每次写入落盘，进程重启后从文件恢复。
type Buffer struct {
	mu       sync.Mutex
	capacity int
	filePath string
	items    []string
}

// NewBuffer 创建提问缓冲并从持久化文件恢复；filePath 为空则不落盘
func NewBuffer(capacity int, filePath string) *Buffer {
	b := &Buffer{capacity: capacity, filePath: filePath}
	b.load()
	return b
}

// Add 记录一个新问题
func (b *Buffer) Add(question string) {
	if question == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append([]string{question}, b.items...)
	if len(b.items) > b.capacity {
		b.items = b.items[:b.capacity]
	}
	b.save()
}

// Recent 返回最近 n 个问题，新的在前
func (b *Buffer) Recent(n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || n > len(b.items) {
		n = len(b.items)
	}
	out := make([]string, n)
	copy(out, b.items[:n])
	return out
}

// Len 返回缓冲内的问题数
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *Buffer) load() {
	if b.filePath == "" {
		return
	}
	data, err := os.ReadFile(b.filePath)
	if err != nil {
		return
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		log.Printf("[history] corrupt history file %s: %v", b.filePath, err)
		return
	}
	if len(items) > b.capacity {
		items = items[:b.capacity]
	}
	b.items = items
}

// save 持久化失败只记日志，不影响问答主流程
func (b *Buffer) save() {
	if b.filePath == "" {
		return
	}
	data, err := json.Marshal(b.items)
	if err != nil {
		return
	}
	if dir := filepath.Dir(b.filePath); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	if err := os.WriteFile(b.filePath, data, 0o644); err != nil {
		log.Printf("[history] failed to persist history: %v", err)
	}
}
