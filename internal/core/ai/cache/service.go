package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"recipe-vision/internal/infrastructure/config"
	"recipe-vision/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const redisKeyPrefix = "recipe-vision:"

// Service Redis 緩存服務
type Service struct {
	client *redis.Client
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
	errs   atomic.Int64
}

// NewService 創建緩存服務並測試連線
func NewService(cfg config.RedisConfig, ttl time.Duration) (*Service, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 測試連接
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	common.LogInfo("快取管理員已初始化",
		zap.String("backend", "redis"),
		zap.String("addr", cfg.Addr),
		zap.Duration("存活時間", ttl),
	)

	return &Service{client: client, ttl: ttl}, nil
}

// Get 獲取緩存
func (s *Service) Get(ctx context.Context, key string) (string, bool) {
	val, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.errs.Add(1)
			common.LogWarn("failed to get cache", zap.Error(err))
		}
		s.misses.Add(1)
		return "", false
	}
	s.hits.Add(1)
	return val, true
}

// Set 設置緩存
func (s *Service) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, redisKeyPrefix+key, value, s.ttl).Err(); err != nil {
		s.errs.Add(1)
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Stats 獲取緩存統計信息
func (s *Service) Stats() Stats {
	hits, misses := s.hits.Load(), s.misses.Load()
	return Stats{
		Backend: "redis",
		Size:    -1,
		Hits:    hits,
		Misses:  misses,
		Errors:  s.errs.Load(),
		HitRate: hitRate(hits, misses),
	}
}

// Close 關閉連線
func (s *Service) Close() error {
	return s.client.Close()
}
