package api

import (
	"fmt"
	"time"

	"recipe-vision/internal/api/handlers/health"
	recipeHandler "recipe-vision/internal/api/handlers/recipe"
	"recipe-vision/internal/api/middleware"
	"recipe-vision/internal/app"
	"recipe-vision/internal/infrastructure/config"
	"recipe-vision/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// multipart 表單的額外空間
const formOverhead = 1 << 20

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, a *app.App) (*gin.Engine, error) {
	if a == nil {
		return nil, fmt.Errorf("services not initialized")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	maxBody := cfg.Upload.MaxSizeBytes + formOverhead
	router.MaxMultipartMemory = cfg.Upload.MaxSizeBytes

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New()) // 自動生成請求 ID
	router.Use(middleware.Logger())
	if cfg.Metrics.Enabled {
		router.Use(middleware.Metrics())
	}

	// CORS 設置
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if allowsAll(cfg.Server.AllowOrigins) {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Server.AllowOrigins
		corsConfig.AllowCredentials = true
	}
	router.Use(cors.New(corsConfig))

	// 健康檢查路由
	healthHandler := health.NewHandler(health.Options{
		Version:    cfg.App.Version,
		UploadDir:  a.Uploads.Dir(),
		Tiers:      a.Backends.EnabledTiers(),
		Cache:      a.Cache,
		Queue:      a.Queue,
		YOLOLoaded: a.Local.Loaded,
		LLMLoaded:  a.Recipes.Loaded,
	})
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// API 路由組
	api := router.Group("/api")
	api.GET("/health", healthHandler.Status)

	work := api.Group("")
	work.Use(middleware.BodySizeLimit(maxBody))
	if cfg.RateLimit.Enabled {
		work.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	work.Use(middleware.Deduplication(cfg.DedupWindow))
	work.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	{
		h := recipeHandler.NewHandler(a.Detector, a.Uploads, a.Recipes, cfg.App.Debug)

		// 食材辨識
		work.POST("/detect", h.HandleDetect)

		// 使用食材清單生成食譜
		work.POST("/generate-recipes", h.HandleGenerateRecipes)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Strings("detection_tiers", tierNames(a)),
		zap.Bool("cache_enabled", a.Cache != nil),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", maxBody),
	)

	return router, nil
}

func allowsAll(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func tierNames(a *app.App) []string {
	tiers := a.Backends.EnabledTiers()
	names := make([]string, len(tiers))
	for i, t := range tiers {
		names[i] = string(t)
	}
	return names
}
