package yolo

import (
	"context"
	"fmt"
	"image"
	"time"

	"recipe-vision/internal/pkg/common"

	"go.uber.org/zap"
)

// Engine 推論引擎，輸入為 NHWC float32
type Engine interface {
	InputSize() (width, height int)
	Run(input []float32) (output []float32, shape []int, err error)
	Close() error
}

// ImageLoader 從路徑解碼圖片
type ImageLoader interface {
	Load(path string) (image.Image, string, error)
}

// Options 後處理參數
type Options struct {
	IoUThreshold float64
	// NormalizedBoxes 模型輸出的座標是否為 0-1
	NormalizedBoxes bool
}

// Detector 本地 YOLOv8 偵測器，模型在第一次使用時載入
type Detector struct {
	engine *common.Lazy[Engine]
	images ImageLoader
	labels []string
	opts   Options
}

// NewDetector 創建偵測器，newEngine 只會成功執行一次
func NewDetector(newEngine func() (Engine, error), images ImageLoader, labels []string, opts Options) *Detector {
	if len(labels) == 0 {
		labels = COCOLabels
	}
	if opts.IoUThreshold <= 0 {
		opts.IoUThreshold = 0.45
	}

	return &Detector{
		engine: common.NewLazy(func() (Engine, error) {
			common.LogInfo("Loading YOLOv8 model...")
			start := time.Now()
			e, err := newEngine()
			if err != nil {
				return nil, err
			}
			common.LogInfo("YOLOv8 model loaded successfully", zap.Duration("duration", time.Since(start)))
			return e, nil
		}),
		images: images,
		labels: labels,
		opts:   opts,
	}
}

// Labels 返回類別標籤
func (d *Detector) Labels() []string {
	return d.labels
}

// Loaded 回報模型是否已載入
func (d *Detector) Loaded() bool {
	return d.engine.Loaded()
}

// Predict 對圖片執行偵測，只保留分數 >= threshold 的框
func (d *Detector) Predict(ctx context.Context, imagePath string, threshold float64) ([]Box, error) {
	img, _, err := d.images.Load(imagePath)
	if err != nil {
		return nil, err
	}

	engine, err := d.engine.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, h := engine.InputSize()
	input, t := letterbox(img, w, h)

	output, shape, err := engine.Run(input)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	boxes, err := decode(output, shape, threshold, d.opts.NormalizedBoxes, w, h, t)
	if err != nil {
		return nil, err
	}
	boxes = nms(boxes, d.opts.IoUThreshold)

	common.LogDebug("YOLOv8 detection",
		zap.String("path", imagePath),
		zap.Int("boxes", len(boxes)))
	return boxes, nil
}

// Close 釋放模型
func (d *Detector) Close() error {
	if e, ok := d.engine.Peek(); ok {
		return e.Close()
	}
	return nil
}
