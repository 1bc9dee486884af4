package health

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"recipe-vision/internal/core/ai/cache"
	"recipe-vision/internal/core/ai/queue"
	"recipe-vision/internal/core/detection"
	"recipe-vision/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
}

// StatusResponse /api/health 響應
type StatusResponse struct {
	Status         string           `json:"status"`
	ModelsLoaded   ModelsLoaded     `json:"models_loaded"`
	DetectionTiers []detection.Tier `json:"detection_tiers"`
	Cache          *cache.Stats     `json:"cache,omitempty"`
	Queue          *queue.Status    `json:"queue,omitempty"`
}

// ModelsLoaded 延遲載入的模型狀態
type ModelsLoaded struct {
	YOLOv8 bool `json:"yolov8"`
	// 沿用前端使用的 ollama 鍵，OpenRouter 時同樣回報語言模型狀態
	LLM    bool `json:"ollama"`
}

// Options 健康檢查所需的服務狀態
type Options struct {
	Version   string
	UploadDir string
	Tiers     []detection.Tier
	Cache     cache.Store
	Queue     *queue.Manager
	// YOLOLoaded 與 LLMLoaded 回報模型是否已載入
	YOLOLoaded func() bool
	LLMLoaded  func() bool
}

// Handler 健康檢查處理器
type Handler struct {
	opts Options
}

// NewHandler 創建健康檢查處理器
func NewHandler(opts Options) *Handler {
	return &Handler{opts: opts}
}

// Status 回報服務狀態與模型載入情況
func (h *Handler) Status(c *gin.Context) {
	resp := StatusResponse{
		Status: "running",
		ModelsLoaded: ModelsLoaded{
			YOLOv8: loaded(h.opts.YOLOLoaded),
			LLM:    loaded(h.opts.LLMLoaded),
		},
		DetectionTiers: h.opts.Tiers,
	}
	if h.opts.Cache != nil {
		stats := h.opts.Cache.Stats()
		resp.Cache = &stats
	}
	if h.opts.Queue != nil {
		status := h.opts.Queue.Status()
		resp.Queue = &status
	}
	c.JSON(http.StatusOK, resp)
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.opts.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器，上傳目錄必須存在
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.opts.UploadDir != "" {
		if info, err := os.Stat(h.opts.UploadDir); err != nil || !info.IsDir() {
			common.LogWarn("Upload dir unavailable", zap.String("dir", h.opts.UploadDir), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"reason": "upload dir unavailable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func loaded(f func() bool) bool {
	return f != nil && f()
}
