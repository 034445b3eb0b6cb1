// Package store 保存已完整翻译的章节
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-chapter-translator/internal/chapter"
	"github.com/nerdneilsfield/go-chapter-translator/internal/config"
)

// ErrNotFound 章节不存在
var ErrNotFound = errors.New("chapter not found")

// Store 章节存储。Upsert 按 Key 幂等，重复写入保留首次的 CreatedAt。
type Store interface {
	Get(ctx context.Context, key chapter.Key) (*chapter.Document, error)
	Upsert(ctx context.Context, doc *chapter.Document) error
	Close() error
}

// New 按配置创建存储
func New(ctx context.Context, cfg config.StoreConfig, ttl time.Duration, logger *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(cfg.MemorySize)
	case "postgres":
		return OpenPostgres(ctx, cfg.PostgresDSN, cfg.AutoMigrate, logger)
	case "redis":
		return OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, ttl)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func cloneDocument(doc *chapter.Document) *chapter.Document {
	c := *doc
	if doc.PrevKey != nil {
		c.PrevKey = chapter.OptionalKey(doc.PrevKey.String())
	}
	if doc.NextKey != nil {
		c.NextKey = chapter.OptionalKey(doc.NextKey.String())
	}
	return &c
}

func validate(doc *chapter.Document) error {
	if doc == nil || doc.Key == "" {
		return fmt.Errorf("document key is required")
	}
	return nil
}
