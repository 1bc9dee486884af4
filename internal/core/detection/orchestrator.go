package detection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recipe-vision/internal/pkg/common"

	"go.uber.org/zap"
)

// Backends 各層級的後端實作，Vision 與 FoodDetector 可為 nil
type Backends struct {
	Vision       Backend
	FoodDetector Backend
	Local        Backend
}

// Orchestrator 依優先順序嘗試各層級，第一個成功的結果即為答案
type Orchestrator struct {
	config BackendConfiguration
	chain  []Backend
}

// NewOrchestrator 創建辨識編排器，本地層為必要
func NewOrchestrator(cfg BackendConfiguration, backends Backends) (*Orchestrator, error) {
	if backends.Local == nil {
		return nil, errors.New("local backend is required")
	}

	chain := make([]Backend, 0, 3)
	if cfg.VisionEnabled {
		if backends.Vision != nil {
			chain = append(chain, backends.Vision)
		} else {
			common.LogWarn("Vision tier enabled but no backend provided", zap.Error(ErrConfigurationAbsent))
			cfg.VisionEnabled = false
		}
	}
	if cfg.FoodDetectorEnabled {
		if backends.FoodDetector != nil {
			chain = append(chain, backends.FoodDetector)
		} else {
			common.LogWarn("Food detector tier enabled but no backend provided", zap.Error(ErrConfigurationAbsent))
			cfg.FoodDetectorEnabled = false
		}
	}
	chain = append(chain, backends.Local)

	return &Orchestrator{config: cfg, chain: chain}, nil
}

// Config 返回實際生效的後端設定
func (o *Orchestrator) Config() BackendConfiguration {
	return o.config
}

// Detect 依序嘗試各層級，只有終端層級失敗時才回傳錯誤
func (o *Orchestrator) Detect(ctx context.Context, imagePath string) ([]Detection, error) {
	for i, backend := range o.chain {
		res := o.attempt(ctx, backend, imagePath)
		if res.OK() {
			common.LogInfo("食材辨識完成",
				zap.String("tier", string(res.Tier)),
				zap.Int("count", len(res.Detections)),
				zap.Duration("duration", res.Duration))
			return res.Detections, nil
		}

		if i == len(o.chain)-1 {
			return nil, &DetectionError{Tier: res.Tier, Err: terminalError(res.Err)}
		}

		common.LogWarn("辨識層級失敗，改用下一層",
			zap.String("tier", string(res.Tier)),
			zap.String("next", string(o.chain[i+1].Tier())),
			zap.Error(res.Err))
	}

	// chain 至少包含本地層
	return nil, ErrDetectionFailed
}

// attempt 呼叫單一層級，錯誤與 panic 都留在這一層
func (o *Orchestrator) attempt(ctx context.Context, backend Backend, imagePath string) (res Result) {
	tier := backend.Tier()
	start := time.Now()
	res.Tier = tier

	defer func() {
		if r := recover(); r != nil {
			res.Detections = nil
			res.Err = fmt.Errorf("backend panic: %v", r)
		}
		res.Duration = time.Since(start)

		outcome := "success"
		if res.Err != nil {
			outcome = "failure"
		}
		tierAttempts.WithLabelValues(string(tier), outcome).Inc()
		tierDuration.WithLabelValues(string(tier)).Observe(res.Duration.Seconds())
	}()

	detections, err := backend.Detect(ctx, imagePath)
	if err != nil {
		res.Err = err
		return res
	}
	if detections == nil {
		detections = []Detection{}
	}
	res.Detections = detections
	return res
}

func terminalError(err error) error {
	if errors.Is(err, ErrUnsupportedInput) || errors.Is(err, ErrDetectionFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDetectionFailed, err)
}
