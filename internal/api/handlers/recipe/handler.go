package recipe

import (
	"recipe-vision/internal/core/detection"
)

// Handler 食材辨識與食譜生成處理程序
type Handler struct {
	detector detection.Detector
	uploads  UploadStore
	recipes  RecipeGenerator
	debug    bool
}

// NewHandler 創建新的處理程序，debug 時錯誤響應附帶詳細信息
func NewHandler(detector detection.Detector, uploads UploadStore, recipes RecipeGenerator, debug bool) *Handler {
	return &Handler{
		detector: detector,
		uploads:  uploads,
		recipes:  recipes,
		debug:    debug,
	}
}
