package store

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nerdneilsfield/go-chapter-translator/internal/chapter"
)

// MemoryStore 进程内 LRU 存储
type MemoryStore struct {
	mu    sync.Mutex
	cache *lru.Cache[chapter.Key, *chapter.Document]
	now   func() time.Time
}

// NewMemoryStore 创建容量为 size 的内存存储
func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[chapter.Key, *chapter.Document](size)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{cache: cache, now: time.Now}, nil
}

// Get 获取章节
func (s *MemoryStore) Get(_ context.Context, key chapter.Key) (*chapter.Document, error) {
	doc, ok := s.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDocument(doc), nil
}

// Upsert 写入章节
func (s *MemoryStore) Upsert(ctx context.Context, doc *chapter.Document) error {
	if err := validate(doc); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	stored := cloneDocument(doc)
	stored.CreatedAt = now
	if existing, ok := s.cache.Peek(doc.Key); ok {
		stored.CreatedAt = existing.CreatedAt
	}
	stored.UpdatedAt = now
	s.cache.Add(doc.Key, stored)

	doc.CreatedAt, doc.UpdatedAt = stored.CreatedAt, stored.UpdatedAt
	return nil
}

// Len 当前条目数
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

// Close 清空缓存
func (s *MemoryStore) Close() error {
	s.cache.Purge()
	return nil
}
