package recipe

import (
	"fmt"
	"strings"
)

// DefaultCount 每次生成的食譜數量
const DefaultCount = 3

const promptTemplate = `You are a helpful cooking assistant. Generate %d creative recipes using these ingredients: %s

CRITICAL: Output MUST be valid JSON only. Return exactly one JSON object. Do not include any text before or after the JSON.

Required JSON Structure:
{
  "recipes": [
    {
      "name": "Recipe Name",
      "description": "Short description",
      "time": "XX mins",
      "servings": 2,
      "difficulty": "Easy",
      "ingredients": ["item1", "item2"],
      "steps": ["Step 1", "Step 2"]
    }
  ]
}

"difficulty" must be one of "Easy", "Medium" or "Hard". "servings" must be a positive integer. List "steps" in the order they are performed.`

// BuildPrompt 產生食譜指令，相同輸入永遠得到相同文字
func BuildPrompt(ingredients []string, count int) string {
	if count <= 0 {
		count = DefaultCount
	}
	return fmt.Sprintf(promptTemplate, count, strings.Join(ingredients, ", "))
}

// CleanIngredients 去除空白與空項，依不分大小寫去重並保留第一次出現的順序
func CleanIngredients(ingredients []string) []string {
	seen := make(map[string]struct{}, len(ingredients))
	out := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		ing = strings.Join(strings.Fields(ing), " ")
		if ing == "" {
			continue
		}
		key := strings.ToLower(ing)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ing)
	}
	return out
}
