package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"nutrition-calculator/internal/infrastructure/config"
	"nutrition-calculator/internal/pkg/common"
)

// fakeClock 可手動推進的時鐘
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(maxSize int, ttl time.Duration) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemoryStore(maxSize, ttl, 0)
	m.now = clock.Now
	return m, clock
}

func TestMemoryStoreGetSet(t *testing.T) {
	m, _ := newTestStore(10, time.Minute)
	defer m.Close()
	ctx := context.Background()

	if _, err := m.Get(ctx, "a.yaml"); !errors.Is(err, common.ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}

	if err := m.Set(ctx, "a.yaml", []byte("dish: {}")); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := m.Get(ctx, "a.yaml")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "dish: {}" {
		t.Fatalf("unexpected value %q", got)
	}

	stats := m.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Size != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	m, clock := newTestStore(10, time.Minute)
	defer m.Close()
	ctx := context.Background()

	_ = m.Set(ctx, "a.yaml", []byte("x"))
	clock.Advance(30 * time.Second)
	if _, err := m.Get(ctx, "a.yaml"); err != nil {
		t.Fatalf("expected entry to be alive: %v", err)
	}

	clock.Advance(31 * time.Second)
	if _, err := m.Get(ctx, "a.yaml"); !errors.Is(err, common.ErrCacheMiss) {
		t.Fatalf("expected expired entry to miss, got %v", err)
	}
	if m.Stats().Size != 0 {
		t.Fatal("expected expired entry to be removed")
	}
}

func TestMemoryStoreEvictsLeastUsed(t *testing.T) {
	m, clock := newTestStore(2, time.Hour)
	defer m.Close()
	ctx := context.Background()

	_ = m.Set(ctx, "a", []byte("a"))
	clock.Advance(time.Second)
	_ = m.Set(ctx, "b", []byte("b"))
	clock.Advance(time.Second)

	// a 被讀取過，b 應被淘汰
	if _, err := m.Get(ctx, "a"); err != nil {
		t.Fatalf("get a: %v", err)
	}
	_ = m.Set(ctx, "c", []byte("c"))

	if _, err := m.Get(ctx, "b"); !errors.Is(err, common.ErrCacheMiss) {
		t.Fatalf("expected b to be evicted, got %v", err)
	}
	for _, key := range []string{"a", "c"} {
		if _, err := m.Get(ctx, key); err != nil {
			t.Fatalf("expected %s to be cached: %v", key, err)
		}
	}
	if m.Stats().Evictions != 1 {
		t.Fatalf("expected 1 eviction, got %d", m.Stats().Evictions)
	}
}

func TestMemoryStoreOverwriteDoesNotEvict(t *testing.T) {
	m, _ := newTestStore(1, time.Hour)
	defer m.Close()
	ctx := context.Background()

	_ = m.Set(ctx, "a", []byte("1"))
	_ = m.Set(ctx, "a", []byte("2"))

	got, err := m.Get(ctx, "a")
	if err != nil || string(got) != "2" {
		t.Fatalf("expected overwritten value, got %q (%v)", got, err)
	}
	if m.Stats().Evictions != 0 {
		t.Fatal("expected no eviction on overwrite")
	}
}

func TestNewStore(t *testing.T) {
	store, err := New(context.Background(), config.CacheConfig{Enabled: false})
	if err != nil || store != nil {
		t.Fatalf("expected nil store when disabled, got %v (%v)", store, err)
	}

	store, err = New(context.Background(), config.CacheConfig{
		Enabled: true,
		Backend: config.CacheBackendMemory,
		MaxSize: 5,
		TTL:     time.Minute,
	})
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected *MemoryStore, got %T", store)
	}

	if _, err := New(context.Background(), config.CacheConfig{Enabled: true, Backend: "memcached"}); err == nil {
		t.Fatal("expected unknown backend to fail")
	}
}
