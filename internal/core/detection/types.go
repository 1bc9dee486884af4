package detection

import (
	"context"
	"time"
)

// Tier 辨識層級
type Tier string

const (
	TierVision       Tier = "vision"
	TierFoodDetector Tier = "food_detector"
	TierLocal        Tier = "local"
)

// BBox 邊界框 [x1, y1, x2, y2]，單位為原圖像素
type BBox [4]float64

// Detection 標準化後的食材辨識結果
type Detection struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	BBox       *BBox   `json:"bbox"`
}

// Result 單一層級的辨識結果，Err 為 nil 表示成功
type Result struct {
	Tier       Tier
	Detections []Detection
	Err        error
	Duration   time.Duration
}

// OK 回報是否成功
func (r Result) OK() bool {
	return r.Err == nil
}

// BackendConfiguration 啟動時決定的後端設定，之後不再變動
type BackendConfiguration struct {
	VisionEnabled       bool
	FoodDetectorEnabled bool
	LocalThreshold      float64
}

// EnabledTiers 依優先順序列出啟用的層級，本地層永遠啟用
func (c BackendConfiguration) EnabledTiers() []Tier {
	tiers := make([]Tier, 0, 3)
	if c.VisionEnabled {
		tiers = append(tiers, TierVision)
	}
	if c.FoodDetectorEnabled {
		tiers = append(tiers, TierFoodDetector)
	}
	return append(tiers, TierLocal)
}

// Backend 辨識後端
type Backend interface {
	Tier() Tier
	Detect(ctx context.Context, imagePath string) ([]Detection, error)
}

// Detector 對外的辨識介面
type Detector interface {
	Detect(ctx context.Context, imagePath string) ([]Detection, error)
}
