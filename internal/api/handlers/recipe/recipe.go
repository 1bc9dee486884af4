package recipe

import (
	"context"
	"errors"
	"net/http"

	recipeService "recipe-vision/internal/core/recipe"
	"recipe-vision/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GenerateRecipesRequest 使用食材清單生成食譜
type GenerateRecipesRequest struct {
	Ingredients []string `json:"ingredients"`
}

// GenerateRecipesResponse 食譜生成回應，recipes 為模型輸出的文件
type GenerateRecipesResponse struct {
	Success bool                    `json:"success"`
	Recipes *recipeService.Document `json:"recipes"`
}

// HandleGenerateRecipes 處理 /api/generate-recipes 食譜生成 API
func (h *Handler) HandleGenerateRecipes(c *gin.Context) {
	requestID := requestid.Get(c)

	var req GenerateRecipesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		respondError(c, common.ErrInvalidRequest.Wrap(err), h.debug)
		return
	}

	common.LogInfo("開始處理食譜生成請求",
		zap.String("request_id", requestID),
		zap.Int("ingredients", len(req.Ingredients)),
	)

	doc, err := h.recipes.Generate(c.Request.Context(), req.Ingredients)
	if err != nil {
		h.respondGenerationError(c, err)
		return
	}

	c.JSON(http.StatusOK, GenerateRecipesResponse{
		Success: true,
		Recipes: doc,
	})
}

// respondGenerationError 將生成錯誤對應到 HTTP 狀態碼
func (h *Handler) respondGenerationError(c *gin.Context, err error) {
	switch {
	case common.IsValidationError(err):
		respondError(c, common.ErrNoIngredients, h.debug)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(c, common.ErrGatewayTimeout.Wrap(err), h.debug)
	case errors.Is(err, recipeService.ErrUnparseableResponse):
		ce := common.ErrUnparseableAIReply.Wrap(err)
		var ge *recipeService.GenerationError
		if h.debug && errors.As(err, &ge) && ge.RawResponse != "" {
			// 原始輸出方便排查模型回應
			resp := ce.Response(true)
			resp.Details = ge.RawResponse
			respondWith(c, ce, resp)
			return
		}
		respondError(c, ce, h.debug)
	default:
		respondError(c, common.ErrAIServiceError.Wrap(err), h.debug)
	}
}
