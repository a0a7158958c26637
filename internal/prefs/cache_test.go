package prefs

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, ttl), s
}

func TestRedisCache_GetSet(t *testing.T) {
	cache, s := setupRedisCache(t, time.Hour)
	ctx := context.Background()

	if _, ok, err := cache.Get(ctx, CacheKey); ok || err != nil {
		t.Fatalf("empty cache Get() = %v, %v", ok, err)
	}
	if err := cache.Set(ctx, CacheKey, roseCompactXL.String()); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	v, ok, err := cache.Get(ctx, CacheKey)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if Normalize(v) != roseCompactXL {
		t.Errorf("Get() = %q", v)
	}
	if !s.Exists("prefs:" + CacheKey) {
		t.Error("expected prefixed key in redis")
	}
}

func TestRedisCache_TTL(t *testing.T) {
	cache, s := setupRedisCache(t, time.Minute)
	ctx := context.Background()
	_ = cache.Set(ctx, "k", "v")

	s.FastForward(2 * time.Minute)

	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Error("entry should expire after ttl")
	}
}

func TestRedisCache_ServerDownIsAnError(t *testing.T) {
	cache, s := setupRedisCache(t, time.Minute)
	s.Close()

	if _, _, err := cache.Get(context.Background(), "k"); err == nil {
		t.Error("expected error when redis is unreachable")
	}
}

func TestRedisCache_WithReconciler(t *testing.T) {
	cache, _ := setupRedisCache(t, time.Hour)
	ctx := context.Background()

	NewReconciler(cache, nil, "p-1").Reconcile(ctx, emeraldMD)
	got := NewReconciler(cache, nil, "p-1").Reconcile(ctx, nil)
	if got != emeraldMD {
		t.Errorf("Reconcile() = %+v, expected cached %+v", got, emeraldMD)
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	_ = c.Set(ctx, "a", "1")
	_ = c.Set(ctx, "a", "2")

	v, ok, _ := c.Get(ctx, "a")
	if !ok || v != "2" {
		t.Errorf("Get() = %q, %v", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, expected 1", c.Len())
	}
}

func TestScopedKey(t *testing.T) {
	if ScopedKey(CacheKey, "") != CacheKey {
		t.Error("empty scope should keep the bare key")
	}
	if ScopedKey(CacheKey, "u1") != "ts_ui_prefs_v1:u1" {
		t.Errorf("ScopedKey() = %q", ScopedKey(CacheKey, "u1"))
	}
}
