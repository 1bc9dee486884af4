package recipe

import (
	"context"
	"errors"
	"mime/multipart"

	recipeService "recipe-vision/internal/core/recipe"
	"recipe-vision/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UploadStore 上傳檔案儲存
type UploadStore interface {
	Save(fh *multipart.FileHeader) (string, error)
	Remove(path string) error
}

// RecipeGenerator 食譜生成
type RecipeGenerator interface {
	Generate(ctx context.Context, ingredients []string) (*recipeService.Document, error)
}

// respondError 寫入錯誤響應
func respondError(c *gin.Context, ce *common.CustomError, debug bool) {
	respondWith(c, ce, ce.Response(debug))
}

// respondWith 寫入指定的錯誤響應，5xx 錯誤回報到 Sentry
func respondWith(c *gin.Context, ce *common.CustomError, resp common.ErrorResponse) {
	if ce.Status >= 500 && ce.Err != nil && !errors.Is(ce.Err, context.Canceled) {
		common.CaptureError(ce.Err, map[string]string{
			"code":       ce.Code,
			"path":       c.FullPath(),
			"request_id": requestid.Get(c),
		})
	}
	if ce.Err != nil {
		_ = c.Error(ce.Err)
	}
	common.LogDebug("請求失敗",
		zap.String("code", ce.Code),
		zap.String("request_id", requestid.Get(c)),
	)
	c.AbortWithStatusJSON(ce.Status, resp)
}
