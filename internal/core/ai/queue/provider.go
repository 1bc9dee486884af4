package queue

import (
	"context"

	"recipe-vision/internal/core/ai/provider"
)

// Provider 透過隊列呼叫語言模型，限制同時進行的請求數
type Provider struct {
	provider.Provider
	manager *Manager
}

// Wrap 以隊列包裝語言模型提供者
func Wrap(p provider.Provider, m *Manager) *Provider {
	return &Provider{Provider: p, manager: m}
}

// Generate 排隊後呼叫底層提供者
func (p *Provider) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	return Do(ctx, p.manager, func(ctx context.Context) (*provider.Response, error) {
		return p.Provider.Generate(ctx, req)
	})
}
