package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestKey(t *testing.T) {
	got := Key(8453, "0xabc")
	if got != "tokendata:meta:8453:0xabc" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestRedisCache_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	c := NewRedisCacheWithClient(client, time.Hour, zap.NewNop())
	defer c.Close()

	ctx := context.Background()

	_, err := c.Get(ctx, 1, "0xabc")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrCacheMiss) {
		t.Error("connection failures must not be reported as a miss")
	}

	if err := c.HealthCheck(ctx); err == nil {
		t.Error("expected health check to fail")
	}
}
