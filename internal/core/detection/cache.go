package detection

import (
	"context"
	"os"

	"recipe-vision/internal/core/ai/cache"
	"recipe-vision/internal/pkg/common"

	"go.uber.org/zap"
)

// CachedDetector 以圖片內容為鍵緩存辨識結果
type CachedDetector struct {
	next  Detector
	store cache.Store
}

// NewCachedDetector 包裝辨識器，store 為 nil 時直接返回原辨識器
func NewCachedDetector(next Detector, store cache.Store) Detector {
	if store == nil {
		return next
	}
	return &CachedDetector{next: next, store: store}
}

// Detect 命中時不呼叫任何後端；緩存錯誤不影響請求
func (c *CachedDetector) Detect(ctx context.Context, imagePath string) ([]Detection, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		// 交給下層回報不可讀的圖片
		return c.next.Detect(ctx, imagePath)
	}
	key := cache.Key("detect", common.HashBytes(data))

	if raw, ok := c.store.Get(ctx, key); ok {
		var detections []Detection
		if err := common.ParseJSON(raw, &detections); err == nil {
			cacheLookups.WithLabelValues("hit").Inc()
			common.LogCacheHit("detection")
			return detections, nil
		}
	}
	cacheLookups.WithLabelValues("miss").Inc()
	common.LogCacheMiss("detection")

	detections, err := c.next.Detect(ctx, imagePath)
	if err != nil {
		return nil, err
	}

	if raw, err := common.ToJSON(detections); err == nil {
		if err := c.store.Set(ctx, key, raw); err != nil {
			common.LogWarn("failed to cache detections", zap.Error(err))
		}
	}
	return detections, nil
}
