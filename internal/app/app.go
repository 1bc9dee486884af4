package app

import (
	"errors"
	"fmt"

	"recipe-vision/internal/core/ai/cache"
	"recipe-vision/internal/core/ai/provider"
	"recipe-vision/internal/core/ai/queue"
	aiservice "recipe-vision/internal/core/ai/service"
	"recipe-vision/internal/core/detection"
	"recipe-vision/internal/core/detection/yolo"
	"recipe-vision/internal/core/detection/yolo/tfengine"
	"recipe-vision/internal/core/image"
	"recipe-vision/internal/core/recipe"
	"recipe-vision/internal/infrastructure/config"
	"recipe-vision/internal/pkg/common"

	"go.uber.org/zap"
)

// 送往遠端模型的圖片最長邊
const maxImageEdge = 1200

// App 組裝完成的服務
type App struct {
	Config   *config.Config
	Cache    cache.Store
	Images   *image.Service
	Uploads  *image.Store
	Local    *yolo.Detector
	Backends detection.BackendConfiguration
	Detector detection.Detector
	Recipes  *recipe.Service
	Queue    *queue.Manager
}

// BackendConfiguration 由設定推導辨識層級，有 API Key 的遠端層級才啟用
func BackendConfiguration(cfg *config.Config) detection.BackendConfiguration {
	return detection.BackendConfiguration{
		VisionEnabled:       cfg.Detection.Vision.APIKey != "",
		FoodDetectorEnabled: cfg.Detection.Food.APIKey != "",
		LocalThreshold:      cfg.Detection.Local.ConfidenceThreshold,
	}
}

// New 依設定創建所有服務，模型在第一次使用時才載入
func New(cfg *config.Config) (*App, error) {
	store, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	images := image.NewService(cfg.Upload.MaxSizeBytes, maxImageEdge)
	uploads, err := image.NewStore(cfg.Upload.Dir, cfg.Upload.MaxSizeBytes)
	if err != nil {
		closeStore(store)
		return nil, err
	}

	local := cfg.Detection.Local
	labels, err := yolo.LoadLabels(local.LabelsPath)
	if err != nil {
		closeStore(store)
		return nil, err
	}
	localDetector := yolo.NewDetector(func() (yolo.Engine, error) {
		e, err := tfengine.New(local.ModelPath, local.Threads)
		if err != nil {
			return nil, err
		}
		return e, nil
	}, images, labels, yolo.Options{
		IoUThreshold:    local.IoUThreshold,
		NormalizedBoxes: local.NormalizedBoxes,
	})

	backendCfg := BackendConfiguration(cfg)
	backends := detection.Backends{
		Local: detection.NewLocalBackend(localDetector, local.ConfidenceThreshold),
	}
	if backendCfg.VisionEnabled {
		v := cfg.Detection.Vision
		backends.Vision = detection.NewVisionBackend(
			detection.NewGeminiClient(v.BaseURL, v.APIKey, v.Model, v.Timeout), images)
	}
	if backendCfg.FoodDetectorEnabled {
		f := cfg.Detection.Food
		backends.FoodDetector = detection.NewFoodDetectorBackend(
			detection.NewRoboflowClient(f.BaseURL, f.APIKey, f.ModelID, f.Timeout), images)
	}

	orchestrator, err := detection.NewOrchestrator(backendCfg, backends)
	if err != nil {
		closeStore(store)
		return nil, err
	}

	// 食譜快取需另外開啟
	var recipeStore cache.Store
	if cfg.Recipe.Cache {
		recipeStore = store
	}

	llmQueue := queue.NewManager(cfg.Queue.Workers, cfg.Queue.MaxSize)
	recipes := recipe.NewService(func() (provider.Provider, error) {
		p, err := aiservice.NewProvider(cfg.LLM)
		if err != nil {
			return nil, err
		}
		return queue.Wrap(p, llmQueue), nil
	}, recipeStore, recipe.Options{
		Count:        cfg.Recipe.Count,
		StrictSchema: cfg.Recipe.StrictSchema,
	})

	common.LogInfo("服務初始化完成",
		zap.Bool("vision_enabled", backendCfg.VisionEnabled),
		zap.Bool("food_detector_enabled", backendCfg.FoodDetectorEnabled),
		zap.String("gemini_api_key", config.MaskAPIKey(cfg.Detection.Vision.APIKey)),
		zap.String("roboflow_api_key", config.MaskAPIKey(cfg.Detection.Food.APIKey)),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Int("llm_workers", cfg.Queue.Workers),
		zap.Bool("cache_enabled", store != nil),
		zap.Bool("recipe_cache", recipes.Caching()),
	)

	return &App{
		Config:   cfg,
		Cache:    store,
		Images:   images,
		Uploads:  uploads,
		Local:    localDetector,
		Backends: backendCfg,
		Detector: detection.NewCachedDetector(orchestrator, store),
		Recipes:  recipes,
		Queue:    llmQueue,
	}, nil
}

// Close 釋放模型與緩存連線
func (a *App) Close() error {
	var errs []error
	a.Queue.Close()
	if err := a.Local.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.Recipes.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func closeStore(store cache.Store) {
	if store != nil {
		_ = store.Close()
	}
}
