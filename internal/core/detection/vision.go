package detection

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-vision/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// VisionPrompt 要求模型只回傳 JSON 陣列的指令
const VisionPrompt = `Analyze this image and identify ALL food ingredients visible.
Return ONLY a JSON array of objects with this exact structure:
[{"name": "ingredient_name", "confidence": 0.95}]

Rules:
- Only list actual food ingredients (not utensils, plates, etc.)
- Use common ingredient names (e.g., "potato" not "russet potato")
- Confidence should be 0.7-0.99 based on visibility
- Return empty array [] if no food is visible
- DO NOT include any text before or after the JSON array`

// ImageReader 讀取圖片並輸出 JPEG
type ImageReader interface {
	ReadJPEG(path string) ([]byte, error)
}

// VisionClient 視覺語言模型呼叫
type VisionClient interface {
	Generate(ctx context.Context, image []byte, mimeType, instruction string) (string, error)
}

// VisionBackend 視覺語言模型層級
type VisionBackend struct {
	client VisionClient
	images ImageReader
}

// NewVisionBackend 創建視覺層級
func NewVisionBackend(client VisionClient, images ImageReader) *VisionBackend {
	return &VisionBackend{client: client, images: images}
}

func (b *VisionBackend) Tier() Tier { return TierVision }

// Detect 送出圖片與指令，從回覆中找出 JSON 陣列
func (b *VisionBackend) Detect(ctx context.Context, imagePath string) ([]Detection, error) {
	img, err := b.images.ReadJPEG(imagePath)
	if err != nil {
		return nil, err
	}

	text, err := b.client.Generate(ctx, img, "image/jpeg", VisionPrompt)
	if err != nil {
		return nil, err
	}

	records, err := ParseVisionReply(text)
	if err != nil {
		common.LogWarn("無法解析視覺模型回應", zap.String("preview", common.Truncate(text, 200)))
		return nil, err
	}
	return NormalizeAll(records), nil
}

// ParseVisionReply 取出第一個 [ 到最後一個 ] 之間的 JSON 陣列
func ParseVisionReply(text string) ([]VisionRecord, error) {
	span, ok := common.ExtractSpan(strings.TrimSpace(text), '[', ']')
	if !ok {
		return nil, fmt.Errorf("%w: no JSON array in vision reply", ErrSchemaMismatch)
	}

	var records []VisionRecord
	if err := common.ParseJSONBytes([]byte(span), &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return records, nil
}

// GeminiClient Gemini generateContent REST 客戶端
type GeminiClient struct {
	client *resty.Client
	model  string
	apiKey string
}

// NewGeminiClient 創建 Gemini 客戶端
func NewGeminiClient(baseURL, apiKey, model string, timeout time.Duration) *GeminiClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &GeminiClient{
		client: client,
		model:  model,
		apiKey: apiKey,
	}
}

// HTTPClient 返回底層 HTTP 客戶端（測試用）
func (c *GeminiClient) HTTPClient() *http.Client {
	return c.client.GetClient()
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiRequest struct {
	Contents []struct {
		Parts []geminiPart `json:"parts"`
	} `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate 送出圖片與指令，返回模型文字
func (c *GeminiClient) Generate(ctx context.Context, image []byte, mimeType, instruction string) (string, error) {
	var req geminiRequest
	req.Contents = make([]struct {
		Parts []geminiPart `json:"parts"`
	}, 1)
	req.Contents[0].Parts = []geminiPart{
		{Text: instruction},
		{InlineData: &geminiInlineData{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(image),
		}},
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(req).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", c.model))
	common.LogAICall("gemini", c.model, time.Since(start), err)

	if err != nil {
		return "", fmt.Errorf("%w: failed to send request to Gemini: %v", ErrTransportFailure, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("%w: Gemini API returned status %d: %s",
			ErrTransportFailure, resp.StatusCode(), common.Truncate(resp.String(), 200))
	}

	var result geminiResponse
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("%w: failed to parse Gemini response: %v", ErrSchemaMismatch, err)
	}

	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in Gemini response", ErrSchemaMismatch)
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
