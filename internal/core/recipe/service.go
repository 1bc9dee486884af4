package recipe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recipe-vision/internal/core/ai/cache"
	"recipe-vision/internal/core/ai/provider"
	"recipe-vision/internal/pkg/common"

	"go.uber.org/zap"
)

// Options 食譜服務設定
type Options struct {
	Count        int
	StrictSchema bool
}

// Service 食譜生成服務
type Service struct {
	provider *common.Lazy[provider.Provider]
	cache    cache.Store
	opts     Options
}

// NewService 創建新的食譜服務，語言模型客戶端在第一次生成時建立
func NewService(newProvider func() (provider.Provider, error), store cache.Store, opts Options) *Service {
	if opts.Count <= 0 {
		opts.Count = DefaultCount
	}
	return &Service{
		provider: common.NewLazy(newProvider),
		cache:    store,
		opts:     opts,
	}
}

// Loaded 回報語言模型客戶端是否已建立
func (s *Service) Loaded() bool {
	return s.provider.Loaded()
}

// Caching 回報是否重用快取中的食譜
func (s *Service) Caching() bool {
	return s.cache != nil
}

// Generate 根據食材生成食譜，模型只呼叫一次
func (s *Service) Generate(ctx context.Context, ingredients []string) (*Document, error) {
	cleaned := CleanIngredients(ingredients)
	if len(cleaned) == 0 {
		return nil, ErrNoIngredients
	}

	prompt := BuildPrompt(cleaned, s.opts.Count)

	p, err := s.provider.Get()
	if err != nil {
		generationsTotal.WithLabelValues("backend_unavailable").Inc()
		return nil, &GenerationError{Kind: ErrBackendUnavailable, Err: err}
	}

	key := cache.Key("recipe", p.GetModel(), prompt)
	if doc, ok := s.fromCache(ctx, key); ok {
		generationsTotal.WithLabelValues("cache_hit").Inc()
		return doc, nil
	}

	common.LogInfo("開始生成食譜",
		zap.Strings("ingredients", cleaned),
		zap.String("model", p.GetModel()),
	)

	start := time.Now()
	resp, err := p.Generate(ctx, provider.UserMessage(prompt))
	llmDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, provider.ErrEmptyResponse) {
			generationsTotal.WithLabelValues("unparseable").Inc()
			return nil, &GenerationError{Kind: ErrUnparseableResponse, Err: err}
		}
		generationsTotal.WithLabelValues("backend_unavailable").Inc()
		common.LogError("語言模型呼叫失敗", zap.Error(err))
		return nil, &GenerationError{Kind: ErrBackendUnavailable, Err: err}
	}

	doc, err := s.parse(resp.Content)
	if err != nil {
		generationsTotal.WithLabelValues("unparseable").Inc()
		common.LogWarn("無法解析食譜回應",
			zap.Error(err),
			zap.String("preview", common.Truncate(resp.Content, 500)),
		)
		return nil, &GenerationError{Kind: ErrUnparseableResponse, Err: err, RawResponse: resp.Content}
	}

	generationsTotal.WithLabelValues("success").Inc()
	common.LogInfo("食譜生成完成",
		zap.Int("recipes", len(doc.Recipes)),
		zap.Duration("duration", time.Since(start)),
	)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, string(doc.Raw())); err != nil {
			common.LogWarn("failed to cache recipes", zap.Error(err))
		}
	}
	return doc, nil
}

// parse 擷取文件，嚴格模式下再檢查每個食譜
func (s *Service) parse(raw string) (*Document, error) {
	doc, err := Extract(raw)
	if err != nil {
		return nil, err
	}
	if s.opts.StrictSchema {
		for i, r := range doc.Recipes {
			if err := r.Validate(); err != nil {
				return nil, fmt.Errorf("%w: recipe %d: %v", ErrSchemaMismatch, i, err)
			}
		}
	}
	return doc, nil
}

func (s *Service) fromCache(ctx context.Context, key string) (*Document, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok := s.cache.Get(ctx, key)
	if !ok {
		common.LogCacheMiss("recipe")
		return nil, false
	}
	doc, err := Extract(raw)
	if err != nil {
		return nil, false
	}
	common.LogCacheHit("recipe")
	return doc, true
}

// Close 關閉語言模型客戶端
func (s *Service) Close() error {
	if p, ok := s.provider.Peek(); ok {
		return p.Close()
	}
	return nil
}
