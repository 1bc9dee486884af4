package recipe

import (
	"errors"
	"net/http"

	"recipe-vision/internal/core/detection"
	"recipe-vision/internal/core/image"
	"recipe-vision/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DetectResponse 食材辨識回應
type DetectResponse struct {
	Success       bool                  `json:"success"`
	DetectedItems []detection.Detection `json:"detected_items"`
}

// HandleDetect 處理 /api/detect 食材辨識 API，表單欄位為 file
func (h *Handler) HandleDetect(c *gin.Context) {
	requestID := requestid.Get(c)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, common.ErrInvalidImageSize.Wrap(err), h.debug)
			return
		}
		respondError(c, common.ErrNoFile, h.debug)
		return
	}
	if fh.Filename == "" {
		respondError(c, common.NewError(common.ErrNoFile.Code, "No selected file", http.StatusBadRequest, nil), h.debug)
		return
	}
	if !image.IsAllowedExtension(fh.Filename) {
		respondError(c, common.ErrInvalidImageFormat, h.debug)
		return
	}

	common.LogInfo("開始處理食材辨識請求",
		zap.String("request_id", requestID),
		zap.String("filename", fh.Filename),
		zap.Int64("size", fh.Size),
		zap.String("client_ip", c.ClientIP()),
	)

	path, err := h.uploads.Save(fh)
	if err != nil {
		switch {
		case errors.Is(err, image.ErrImageTooLarge):
			respondError(c, common.ErrInvalidImageSize.Wrap(err), h.debug)
		case errors.Is(err, image.ErrUnsupportedImage):
			respondError(c, common.ErrInvalidImageFormat.Wrap(err), h.debug)
		default:
			common.LogError("儲存上傳檔案失敗", zap.Error(err), zap.String("request_id", requestID))
			respondError(c, common.ErrInternalError.Wrap(err), h.debug)
		}
		return
	}
	defer func() {
		if err := h.uploads.Remove(path); err != nil {
			common.LogWarn("failed to remove upload", zap.String("path", path), zap.Error(err))
		}
	}()

	items, err := h.detector.Detect(c.Request.Context(), path)
	if err != nil {
		if errors.Is(err, detection.ErrUnsupportedInput) {
			respondError(c, common.ErrInvalidImageFormat.Wrap(err), h.debug)
			return
		}
		common.LogError("食材辨識失敗", zap.Error(err), zap.String("request_id", requestID))
		respondError(c, common.ErrDetectionFailed.Wrap(err), h.debug)
		return
	}

	common.LogInfo("食材辨識完成",
		zap.String("request_id", requestID),
		zap.Int("items", len(items)),
	)

	c.JSON(http.StatusOK, DetectResponse{
		Success:       true,
		DetectedItems: items,
	})
}
