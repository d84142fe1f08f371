// Package cache 食譜文件的位元組快取，支援記憶體與 Redis 兩種後端
package cache

import (
	"context"
	"fmt"

	"nutrition-calculator/internal/infrastructure/config"
)

// Store 以文件位置為鍵的快取
type Store interface {
	// Get 取得快取內容，未命中時回傳 common.ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// New 依設定建立快取；未啟用時回傳 nil
func New(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Backend {
	case config.CacheBackendMemory, "":
		return NewMemoryStore(cfg.MaxSize, cfg.TTL, cfg.CleanupInterval), nil
	case config.CacheBackendRedis:
		store, err := NewRedisStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
