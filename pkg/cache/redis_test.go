package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error: %v", err)
	}
	t.Cleanup(srv.Close)

	c, err := NewRedisCache(context.Background(), "redis://"+srv.Addr(), "fc:")
	if err != nil {
		t.Fatalf("NewRedisCache() error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, srv
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestRedis(t)

	if _, hit, err := c.Get(ctx, "missing"); hit || err != nil {
		t.Errorf("Get(missing) = %v, %v", hit, err)
	}

	if err := c.Set(ctx, "k", []byte("doc"), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if !srv.Exists("fc:k") {
		t.Error("key not stored with prefix")
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit || string(data) != "doc" {
		t.Errorf("Get(k) = %q, %v, %v", data, hit, err)
	}

	srv.FastForward(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("entry should expire with its ttl")
	}

	_ = c.Set(ctx, "d", []byte("x"), 0)
	if ttl := srv.TTL("fc:d"); ttl != 0 {
		t.Errorf("zero ttl stored as %v", ttl)
	}
	if err := c.Delete(ctx, "d"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if srv.Exists("fc:d") {
		t.Error("key still present after Delete")
	}
}

func TestRedisCacheBackendError(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestRedis(t)

	srv.SetError("ERR boom")
	if _, _, err := c.Get(ctx, "k"); err == nil {
		t.Error("Get should surface backend errors")
	}
}

func TestRedisCacheFromClientDoesNotClose(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	c := NewRedisCacheFromClient(client, "")
	if err := c.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Errorf("borrowed client closed: %v", err)
	}
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	defer func(d time.Duration) { retryDelay = d }(retryDelay)
	retryDelay = time.Millisecond

	_, err := NewRedisCache(context.Background(), "redis://127.0.0.1:1", "")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("NewRedisCache() error = %v, want ErrUnavailable", err)
	}

	if _, err := NewRedisCache(context.Background(), "://bad", ""); err == nil {
		t.Error("NewRedisCache() should reject a malformed url")
	}
}
