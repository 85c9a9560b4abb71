package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestAccountKey(t *testing.T) {
	id := uuid.MustParse("0195f1d4-9b3c-7a41-8e33-6f0c2b1a9d10")
	assert.Equal(t, "student:0195f1d4-9b3c-7a41-8e33-6f0c2b1a9d10", AccountKey(id))
}

func TestRedisCache_UnreachableServerIsAMiss(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	c := NewRedisCache(rdb)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	c.Delete(ctx, "k")
}

func TestNoop(t *testing.T) {
	var c Noop
	ctx := context.Background()
	c.Set(ctx, "k", []byte("v"), time.Minute)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	c.Delete(ctx, "k")
}
