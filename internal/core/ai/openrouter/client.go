package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-vision/internal/core/ai/provider"
	"recipe-vision/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	baseURL = "https://openrouter.ai/api/v1"
)

// Client OpenRouter API 客戶端
type Client struct {
	client *resty.Client
	config provider.Config
}

// Request 表示 API 請求
type Request struct {
	Messages    []provider.Message `json:"messages"`
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
	Stream      bool               `json:"stream"`
}

// Response OpenRouter 響應結構
type Response struct {
	ID      string `json:"id"`
	Choices []struct {
		Message provider.Message `json:"message"`
	} `json:"choices"`
	Usage provider.Usage `json:"usage"`
}

// NewClient 創建新的 OpenRouter 客戶端
func NewClient(cfg provider.Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = baseURL
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("X-Title", "Recipe Vision")

	return &Client{client: client, config: cfg}
}

// HTTPClient 返回底層 HTTP 客戶端（測試用）
func (c *Client) HTTPClient() *http.Client {
	return c.client.GetClient()
}

// sanitizeResponse 清理響應內容，移除圖片數據後用於日誌
func sanitizeResponse(body []byte) string {
	s := string(body)
	if strings.Contains(s, "data:image/") {
		return "[IMAGE_DATA_REMOVED]"
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return common.Truncate(s, 500)
	}

	for k, v := range raw {
		if str, ok := v.(string); ok && strings.Contains(str, "base64") {
			raw[k] = "[IMAGE_DATA_REMOVED]"
		}
	}

	sanitized, err := json.Marshal(raw)
	if err != nil {
		return "[JSON_PARSING_ERROR]"
	}
	return common.Truncate(string(sanitized), 500)
}

// Generate 生成回應
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body := &Request{
		Model:       c.config.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = c.config.MaxTokens
	}

	common.LogInfo("Sending request to OpenRouter",
		zap.String("model", body.Model),
		zap.Int("messages", len(body.Messages)),
	)

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	common.LogAICall("openrouter", body.Model, time.Since(start), err)

	if err != nil {
		common.LogError("Failed to send request to AI service",
			zap.Error(err),
			zap.String("model", body.Model),
		)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	sanitizedBody := sanitizeResponse(resp.Body())

	// 檢查 HTTP 狀態碼
	if resp.StatusCode() != http.StatusOK {
		common.LogError("AI service returned error status",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("model", body.Model),
			zap.String("response", sanitizedBody),
		)
		return nil, fmt.Errorf("AI service error (status %d): %s", resp.StatusCode(), sanitizedBody)
	}

	// 解析響應
	var response Response
	if err := common.ParseJSONBytes(resp.Body(), &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w (response: %s)", err, sanitizedBody)
	}

	if len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Message.Content) == "" {
		common.LogError("Empty content in AI service response",
			zap.String("model", body.Model),
			zap.String("response", sanitizedBody),
		)
		return nil, provider.ErrEmptyResponse
	}

	content := response.Choices[0].Message.Content
	common.LogInfo("Successfully generated response from AI service",
		zap.String("model", body.Model),
		zap.Int("content_length", len(content)),
	)

	return &provider.Response{Content: content, Usage: response.Usage}, nil
}

// GetModel 獲取當前使用的模型名稱
func (c *Client) GetModel() string {
	return c.config.Model
}

// GetTimeout 獲取請求超時時間
func (c *Client) GetTimeout() time.Duration {
	return c.config.Timeout
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}
