// Package challenge 实现登录验证码的签发与一次性校验。
// 有 Redis 时用带 TTL 的键存储，没有时退化为进程内存。
package challenge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// 验证码有效期
	codeTTL = 5 * time.Minute
	// Redis key 前缀
	keyPrefix = "captcha:"
	// 验证码长度
	codeLength = 4
)

// 校验的哨兵错误
var (
	// ErrExpired 验证码不存在或已过期
	ErrExpired = errors.New("challenge: code expired")
	// ErrMismatch 验证码不匹配
	ErrMismatch = errors.New("challenge: code mismatch")
)

// Store 验证码存储
type Store struct {
	redis *redis.Client

	mu     sync.Mutex
	memory map[string]memoryEntry
}

type memoryEntry struct {
	code      string
	expiresAt time.Time
}

// NewStore 创建验证码存储；redisClient 可为 nil
func NewStore(redisClient *redis.Client) *Store {
	return &Store{
		redis:  redisClient,
		memory: make(map[string]memoryEntry),
	}
}

// Issue 签发一个验证码，返回挑战 ID 与明文字符
func (s *Store) Issue(ctx context.Context) (string, string, error) {
	id := uuid.NewString()
	code := uuid.NewString()[:codeLength]

	if s.redis != nil {
		if err := s.redis.Set(ctx, keyPrefix+id, code, codeTTL).Err(); err != nil {
			return "", "", err
		}
		return id, code, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.memory[id] = memoryEntry{code: code, expiresAt: time.Now().Add(codeTTL)}
	return id, code, nil
}

// Verify 校验并消费验证码。不区分大小写，无论成败都只能用一次。
func (s *Store) Verify(ctx context.Context, id, code string) error {
	stored, err := s.take(ctx, id)
	if err != nil {
		return err
	}
	if !strings.EqualFold(stored, code) {
		return ErrMismatch
	}
	return nil
}

// take 取出并删除存储的验证码
func (s *Store) take(ctx context.Context, id string) (string, error) {
	if s.redis != nil {
		stored, err := s.redis.GetDel(ctx, keyPrefix+id).Result()
		if err == redis.Nil {
			return "", ErrExpired
		}
		if err != nil {
			return "", err
		}
		return stored, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.memory[id]
	if !ok {
		return "", ErrExpired
	}
	delete(s.memory, id)
	if time.Now().After(entry.expiresAt) {
		return "", ErrExpired
	}
	return entry.code, nil
}

// sweepLocked 清掉内存里已过期的验证码
func (s *Store) sweepLocked() {
	now := time.Now()
	for id, entry := range s.memory {
		if now.After(entry.expiresAt) {
			delete(s.memory, id)
		}
	}
}
