package common

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

var sentryEnabled bool

// InitSentry 初始化錯誤回報，dsn 為空時不啟用
func InitSentry(dsn, env, release string) error {
	if dsn == "" {
		LogInfo("Sentry disabled")
		return nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	}); err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}

	sentryEnabled = true
	LogInfo("Sentry initialized", zap.String("env", env), zap.String("release", release))
	return nil
}

// CaptureError 回報錯誤到 Sentry，附帶標籤
func CaptureError(err error, tags map[string]string) {
	if !sentryEnabled || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})
}

// FlushSentry 在結束前送出緩衝中的事件
func FlushSentry(timeout time.Duration) {
	if sentryEnabled {
		sentry.Flush(timeout)
	}
}
