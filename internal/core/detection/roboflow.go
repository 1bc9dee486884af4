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

// FoodClient 遠端食材偵測呼叫
type FoodClient interface {
	Infer(ctx context.Context, image []byte) ([]FoodRecord, error)
}

// FoodDetectorBackend 遠端食材偵測層級
type FoodDetectorBackend struct {
	client FoodClient
	images ImageReader
}

// NewFoodDetectorBackend 創建食材偵測層級
func NewFoodDetectorBackend(client FoodClient, images ImageReader) *FoodDetectorBackend {
	return &FoodDetectorBackend{client: client, images: images}
}

func (b *FoodDetectorBackend) Tier() Tier { return TierFoodDetector }

// Detect 呼叫遠端偵測並轉換為標準格式
func (b *FoodDetectorBackend) Detect(ctx context.Context, imagePath string) ([]Detection, error) {
	img, err := b.images.ReadJPEG(imagePath)
	if err != nil {
		return nil, err
	}

	records, err := b.client.Infer(ctx, img)
	if err != nil {
		return nil, err
	}

	detections := NormalizeAll(records)
	common.LogDebug("Roboflow detected", zap.Int("raw", len(records)), zap.Int("kept", len(detections)))
	return detections, nil
}

// RoboflowClient Roboflow serverless 推論客戶端
type RoboflowClient struct {
	client  *resty.Client
	modelID string
	apiKey  string
}

// NewRoboflowClient 創建 Roboflow 客戶端
func NewRoboflowClient(baseURL, apiKey, modelID string, timeout time.Duration) *RoboflowClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout)

	return &RoboflowClient{
		client:  client,
		modelID: strings.Trim(modelID, "/"),
		apiKey:  apiKey,
	}
}

// HTTPClient 返回底層 HTTP 客戶端（測試用）
func (c *RoboflowClient) HTTPClient() *http.Client {
	return c.client.GetClient()
}

type roboflowResponse struct {
	Predictions *[]FoodRecord `json:"predictions"`
}

// Infer 以 base64 圖片呼叫推論端點
func (c *RoboflowClient) Infer(ctx context.Context, image []byte) ([]FoodRecord, error) {
	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("api_key", c.apiKey).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(base64.StdEncoding.EncodeToString(image)).
		Post("/" + c.modelID)
	common.LogAICall("roboflow", c.modelID, time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("%w: failed to send request to Roboflow: %v", ErrTransportFailure, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: Roboflow API returned status %d: %s",
			ErrTransportFailure, resp.StatusCode(), common.Truncate(resp.String(), 200))
	}

	var result roboflowResponse
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse Roboflow response: %v", ErrSchemaMismatch, err)
	}
	if result.Predictions == nil {
		return nil, fmt.Errorf("%w: missing predictions", ErrSchemaMismatch)
	}
	return *result.Predictions, nil
}
