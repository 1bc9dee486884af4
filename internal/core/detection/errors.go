package detection

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigurationAbsent 缺少憑證，該層級停用
	ErrConfigurationAbsent = errors.New("backend configuration absent")
	// ErrTransportFailure 網路或遠端服務錯誤
	ErrTransportFailure = errors.New("backend transport failure")
	// ErrSchemaMismatch 回應格式不符
	ErrSchemaMismatch = errors.New("backend response schema mismatch")
	// ErrUnsupportedInput 不支援或無法讀取的圖片
	ErrUnsupportedInput = errors.New("unsupported input")
	// ErrDetectionFailed 終端層級辨識失敗
	ErrDetectionFailed = errors.New("detection failed")
)

// DetectionError 記錄失敗的層級
type DetectionError struct {
	Tier Tier
	Err  error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("%s tier: %v", e.Tier, e.Err)
}

func (e *DetectionError) Unwrap() error {
	return e.Err
}
