package recipe

import (
	"errors"
	"fmt"

	"recipe-vision/internal/pkg/common"
)

// 擷取錯誤
var (
	ErrNoJSONFound    = errors.New("no JSON object found in model output")
	ErrMalformedJSON  = errors.New("malformed JSON in model output")
	ErrSchemaMismatch = errors.New("model output does not match recipe schema")
)

// 生成錯誤種類
var (
	ErrBackendUnavailable  = errors.New("language model backend unavailable")
	ErrUnparseableResponse = errors.New("unparseable language model response")
)

// ErrNoIngredients 清理後沒有任何食材
var ErrNoIngredients = common.NewValidationError("no ingredients provided")

// GenerationError 生成失敗，Kind 為 ErrBackendUnavailable 或 ErrUnparseableResponse
type GenerationError struct {
	Kind error
	Err  error
	// RawResponse 模型原始輸出，用於排查
	RawResponse string
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
