package main

import (
	"fmt"

	"recipe-vision/internal/infrastructure/config"
	"recipe-vision/internal/pkg/common"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// 命令列旗標與設定鍵的對應
var flagKeys = map[string]string{
	"log-level":    "log_level",
	"upload-dir":   "upload.dir",
	"llm-provider": "llm.provider",
	"llm-model":    "llm.model",
	"yolo-model":   "detection.local.model_path",
	"threshold":    "detection.local.confidence_threshold",
	"debug":        "app.debug",
}

// rootCommand 創建根命令
func rootCommand(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "recipe-vision",
		Short:        "Ingredient detection and recipe generation service",
		SilenceUsage: true,
	}

	setupFlags(rootCmd)
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("error binding flag %s: %v", flag, err))
		}
	}

	rootCmd.AddCommand(
		serveCommand(v),
		detectCommand(v),
		recipesCommand(v),
	)

	return rootCmd
}

// setupFlags 定義全域旗標，未指定時使用環境變數或預設值
func setupFlags(rootCmd *cobra.Command) {
	pf := rootCmd.PersistentFlags()
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("upload-dir", "", "Directory for uploaded images")
	pf.String("llm-provider", "", "Language model provider: ollama, openrouter")
	pf.String("llm-model", "", "Language model name")
	pf.String("yolo-model", "", "Path to the YOLOv8 TFLite model")
	pf.Float64("threshold", 0, "Confidence threshold for the local detector")
	pf.Bool("debug", false, "Include error details in API responses")
}

// initialize 載入設定並初始化日誌與錯誤回報
func initialize(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := common.InitLogger(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := common.InitSentry(cfg.Sentry.DSN, cfg.App.Env, cfg.App.Version); err != nil {
		common.LogWarn("Sentry initialization failed", zap.Error(err))
	}

	common.LogInfo("載入設定",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("upload_dir", cfg.Upload.Dir),
		zap.String("log_level", cfg.LogLevel),
	)
	return cfg, nil
}
