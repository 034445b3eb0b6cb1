package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-chapter-translator/internal/chapter"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	s, mr := newRedisStore(t, 0)
	doc := sampleDocument()

	require.NoError(t, s.Upsert(context.Background(), doc))
	assert.True(t, mr.Exists(RedisKey(doc.Key)))

	got, err := s.Get(context.Background(), doc.Key)
	require.NoError(t, err)
	assert.True(t, doc.SameContent(got))
}

func TestRedisStoreMissing(t *testing.T) {
	s, _ := newRedisStore(t, 0)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStorePreservesCreatedAt(t *testing.T) {
	s, mr := newRedisStore(t, 0)
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return first }
	require.NoError(t, s.Upsert(context.Background(), sampleDocument()))

	second := first.Add(time.Hour)
	s.now = func() time.Time { return second }
	require.NoError(t, s.Upsert(context.Background(), sampleDocument()))

	raw, err := mr.Get(RedisKey(sampleDocument().Key))
	require.NoError(t, err)
	var stored chapter.Document
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.True(t, stored.CreatedAt.Equal(first))
	assert.True(t, stored.UpdatedAt.Equal(second))
}

func TestRedisStoreTTL(t *testing.T) {
	s, mr := newRedisStore(t, time.Minute)
	doc := sampleDocument()
	require.NoError(t, s.Upsert(context.Background(), doc))

	assert.Equal(t, time.Minute, mr.TTL(RedisKey(doc.Key)))
	mr.FastForward(2 * time.Minute)

	_, err := s.Get(context.Background(), doc.Key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreCorruptValue(t *testing.T) {
	s, mr := newRedisStore(t, 0)
	require.NoError(t, mr.Set(RedisKey("bad"), "{not json"))

	_, err := s.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
