package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"recipe-vision/internal/pkg/common"
)

var newlineCollapser = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Extract 從模型輸出中找出第一個 { 到最後一個 } 的 JSON 文件。
// 只解析一次，不做修復；欄位層級的檢查交給呼叫端。
func Extract(raw string) (*Document, error) {
	span, ok := common.ExtractSpan(raw, '{', '}')
	if !ok {
		return nil, ErrNoJSONFound
	}

	// 模型常在字串值中輸出未跳脫的換行
	candidate := newlineCollapser.Replace(span)

	var top map[string]json.RawMessage
	if err := common.ParseJSON(candidate, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	rawRecipes, ok := top["recipes"]
	if !ok {
		return nil, fmt.Errorf("%w: missing recipes", ErrSchemaMismatch)
	}
	rawRecipes = bytes.TrimSpace(rawRecipes)
	if len(rawRecipes) == 0 || rawRecipes[0] != '[' {
		return nil, fmt.Errorf("%w: recipes is not an array", ErrSchemaMismatch)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(rawRecipes, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}

	doc := &Document{
		Recipes: make([]Recipe, 0, len(entries)),
		raw:     json.RawMessage(candidate),
	}
	for _, entry := range entries {
		// 無法對應的項目保留零值，原文仍由 raw 輸出
		var r Recipe
		if err := json.Unmarshal(entry, &r); err != nil {
			r = Recipe{}
		}
		doc.Recipes = append(doc.Recipes, r)
	}
	return doc, nil
}
