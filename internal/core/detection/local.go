package detection

import (
	"context"
	"errors"
	"fmt"

	"recipe-vision/internal/core/detection/yolo"
	"recipe-vision/internal/core/image"
)

// LocalModel 本地偵測模型
type LocalModel interface {
	Predict(ctx context.Context, imagePath string, threshold float64) ([]yolo.Box, error)
	Labels() []string
}

// LocalBackend 本地通用偵測層級，作為最後的備援
type LocalBackend struct {
	model     LocalModel
	threshold float64
}

// NewLocalBackend 創建本地層級
func NewLocalBackend(model LocalModel, threshold float64) *LocalBackend {
	return &LocalBackend{model: model, threshold: threshold}
}

func (b *LocalBackend) Tier() Tier { return TierLocal }

// Detect 執行本地偵測並套用信心門檻
func (b *LocalBackend) Detect(ctx context.Context, imagePath string) ([]Detection, error) {
	boxes, err := b.model.Predict(ctx, imagePath, b.threshold)
	if err != nil {
		if errors.Is(err, image.ErrUnsupportedImage) || errors.Is(err, image.ErrImageTooLarge) {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedInput, err)
		}
		return nil, err
	}

	labels := b.model.Labels()
	records := make([]LocalRecord, 0, len(boxes))
	for _, box := range boxes {
		if box.Score < b.threshold {
			continue
		}
		records = append(records, LocalRecord{
			ClassIndex: box.ClassIndex,
			Confidence: box.Score,
			X1:         box.X1,
			Y1:         box.Y1,
			X2:         box.X2,
			Y2:         box.Y2,
			Labels:     labels,
		})
	}
	return NormalizeAll(records), nil
}
