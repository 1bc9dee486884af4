package cache

import (
	"context"
	"sync/atomic"
	"time"

	"recipe-vision/internal/pkg/common"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// CacheManager 記憶體緩存，過期清理交給 go-cache 的 janitor
type CacheManager struct {
	store  *gocache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// NewManager 創建新的緩存管理器
func NewManager(ttl, cleanupInterval time.Duration) *CacheManager {
	m := &CacheManager{
		store: gocache.New(ttl, cleanupInterval),
	}

	common.LogInfo("快取管理員已初始化",
		zap.String("backend", "memory"),
		zap.Duration("存活時間", ttl),
		zap.Duration("清理間隔", cleanupInterval),
	)
	return m
}

// Get 獲取緩存值
func (m *CacheManager) Get(_ context.Context, key string) (string, bool) {
	v, ok := m.store.Get(key)
	if !ok {
		m.misses.Add(1)
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		m.misses.Add(1)
		return "", false
	}
	m.hits.Add(1)
	return s, true
}

// Set 設置緩存值，使用預設存活時間
func (m *CacheManager) Set(_ context.Context, key, value string) error {
	m.store.SetDefault(key, value)
	return nil
}

// Stats 獲取緩存統計信息
func (m *CacheManager) Stats() Stats {
	hits, misses := m.hits.Load(), m.misses.Load()
	return Stats{
		Backend: "memory",
		Size:    m.store.ItemCount(),
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate(hits, misses),
	}
}

// Close 關閉緩存管理器
func (m *CacheManager) Close() error {
	m.store.Flush()
	common.LogInfo("快取管理員已關閉",
		zap.Int64("命中次數", m.hits.Load()),
		zap.Int64("未命中次數", m.misses.Load()),
	)
	return nil
}
