package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nerdneilsfield/go-chapter-translator/internal/chapter"
)

const (
	keyPrefix        = "chapter:"
	maxWatchAttempts = 5
)

// RedisStore 以 JSON 形式保存在 Redis 中的存储
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore 使用已有客户端创建存储，ttl 为 0 表示不过期
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

// OpenRedis 连接 Redis
func OpenRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(client, ttl), nil
}

// RedisKey 章节在 Redis 中的键
func RedisKey(key chapter.Key) string {
	return keyPrefix + key.String()
}

// Get 获取章节
func (s *RedisStore) Get(ctx context.Context, key chapter.Key) (*chapter.Document, error) {
	data, err := s.client.Get(ctx, RedisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var doc chapter.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode cached chapter: %w", err)
	}
	return &doc, nil
}

// Upsert 在 WATCH 事务中写入，保留已有的 CreatedAt
func (s *RedisStore) Upsert(ctx context.Context, doc *chapter.Document) error {
	if err := validate(doc); err != nil {
		return err
	}
	key := RedisKey(doc.Key)

	txf := func(tx *redis.Tx) error {
		now := s.now().UTC()
		stored := cloneDocument(doc)
		stored.CreatedAt = now
		stored.UpdatedAt = now

		existing, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var old chapter.Document
			if json.Unmarshal(existing, &old) == nil && !old.CreatedAt.IsZero() {
				stored.CreatedAt = old.CreatedAt
			}
		case !errors.Is(err, redis.Nil):
			return err
		}

		payload, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		if err == nil {
			doc.CreatedAt, doc.UpdatedAt = stored.CreatedAt, stored.UpdatedAt
		}
		return err
	}

	for i := 0; i < maxWatchAttempts; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis upsert: %w", err)
		}
		return nil
	}
	return fmt.Errorf("redis upsert: too much contention on %s", key)
}

// Close 关闭客户端
func (s *RedisStore) Close() error {
	return s.client.Close()
}
