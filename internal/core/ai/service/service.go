package service

import (
	"fmt"

	"recipe-vision/internal/core/ai/ollama"
	"recipe-vision/internal/core/ai/openrouter"
	"recipe-vision/internal/core/ai/provider"
	"recipe-vision/internal/infrastructure/config"
	"recipe-vision/internal/pkg/common"

	"go.uber.org/zap"
)

// NewProvider 依設定建立語言模型提供者
func NewProvider(cfg config.LLMConfig) (provider.Provider, error) {
	pc := provider.Config{
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		Timeout:   cfg.Timeout,
		BaseURL:   cfg.BaseURL,
		MaxTokens: cfg.MaxTokens,
	}

	var p provider.Provider
	switch cfg.Provider {
	case "ollama", "":
		p = ollama.NewClient(pc)
	case "openrouter":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openrouter provider requires an API key")
		}
		// OLLAMA_HOST 的預設值不適用於 OpenRouter
		pc.BaseURL = ""
		p = openrouter.NewClient(pc)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}

	common.LogInfo("LLM provider ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", p.GetModel()),
		zap.Duration("timeout", p.GetTimeout()),
	)
	return p, nil
}
