package cache

import (
	"context"
	"fmt"

	"recipe-vision/internal/infrastructure/config"
	"recipe-vision/internal/pkg/common"
)

// Store 結果緩存
type Store interface {
	// Get 未命中或發生錯誤時回傳 false
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string) error
	Stats() Stats
	Close() error
}

// Stats 緩存統計
type Stats struct {
	Backend string  `json:"backend"`
	Size    int     `json:"size"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Errors  int64   `json:"errors"`
	HitRate float64 `json:"hit_ratio"`
}

// New 依設定建立緩存，停用時返回 nil
func New(cfg config.CacheConfig) (Store, error) {
	if !cfg.Enabled {
		common.LogInfo("Cache disabled")
		return nil, nil
	}

	switch cfg.Backend {
	case "memory", "":
		return NewManager(cfg.TTL, cfg.CleanupInterval), nil
	case "redis":
		s, err := NewService(cfg.Redis, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Key 組合帶命名空間的緩存鍵
func Key(namespace string, parts ...string) string {
	h := ""
	for _, p := range parts {
		h += p + "\x00"
	}
	return fmt.Sprintf("%s:%s", namespace, common.HashString(h))
}

func hitRate(hits, misses int64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}
