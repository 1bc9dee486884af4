package ollama

import (
	"context"
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
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "gemma3:4b"
)

// Client Ollama chat 客戶端
type Client struct {
	client *resty.Client
	config provider.Config
}

type chatRequest struct {
	Model    string             `json:"model"`
	Messages []provider.Message `json:"messages"`
	Stream   bool               `json:"stream"`
	Options  map[string]any     `json:"options,omitempty"`
}

type chatResponse struct {
	Model   string           `json:"model"`
	Message provider.Message `json:"message"`
	Done    bool             `json:"done"`

	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewClient 創建新的 Ollama 客戶端
func NewClient(cfg provider.Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		cfg.BaseURL = "http://" + cfg.BaseURL
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{client: client, config: cfg}
}

// HTTPClient 返回底層 HTTP 客戶端（測試用）
func (c *Client) HTTPClient() *http.Client {
	return c.client.GetClient()
}

// Generate 呼叫 /api/chat，不使用串流
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body := chatRequest{
		Model:    c.config.Model,
		Messages: req.Messages,
		Stream:   false,
	}
	opts := map[string]any{}
	if req.Temperature > 0 {
		opts["temperature"] = req.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}
	if maxTokens > 0 {
		opts["num_predict"] = maxTokens
	}
	if len(opts) > 0 {
		body.Options = opts
	}

	common.LogInfo("Sending request to Ollama",
		zap.String("model", c.config.Model),
		zap.Int("messages", len(req.Messages)),
	)

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/api/chat")
	common.LogAICall("ollama", c.config.Model, time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("failed to send request to Ollama: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		msg := common.Truncate(resp.String(), 200)
		var apiErr errorResponse
		if common.ParseJSONBytes(resp.Body(), &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return nil, fmt.Errorf("Ollama API returned error (status %d): %s", resp.StatusCode(), msg)
	}

	var result chatResponse
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse Ollama response: %w", err)
	}

	if strings.TrimSpace(result.Message.Content) == "" {
		return nil, provider.ErrEmptyResponse
	}

	out := &provider.Response{Content: result.Message.Content}
	out.Usage.PromptTokens = result.PromptEvalCount
	out.Usage.CompletionTokens = result.EvalCount
	out.Usage.TotalTokens = result.PromptEvalCount + result.EvalCount
	return out, nil
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
