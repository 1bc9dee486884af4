package recipe

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"unicode"
)

// Document 食譜文件，成功時的標準輸出
type Document struct {
	Recipes []Recipe `json:"recipes"`

	// raw 解析前的 JSON 原文，輸出時原樣返回
	raw json.RawMessage
}

// Raw 返回解析來源的 JSON
func (d Document) Raw() json.RawMessage {
	return d.raw
}

// MarshalJSON 有原文時原樣輸出，否則輸出結構化欄位
func (d Document) MarshalJSON() ([]byte, error) {
	if len(d.raw) > 0 {
		return d.raw, nil
	}
	type plain struct {
		Recipes []Recipe `json:"recipes"`
	}
	recipes := d.Recipes
	if recipes == nil {
		recipes = []Recipe{}
	}
	return json.Marshal(plain{Recipes: recipes})
}

// Recipe 單一食譜，欄位接受模型常見的型別偏差
type Recipe struct {
	Name        Text     `json:"name"`
	Description Text     `json:"description"`
	Time        Text     `json:"time"`
	Servings    Servings `json:"servings"`
	Difficulty  Text     `json:"difficulty"`
	Ingredients TextList `json:"ingredients"`
	Steps       TextList `json:"steps"`
}

// Validate 嚴格模式下的欄位檢查
func (r Recipe) Validate() error {
	if strings.TrimSpace(string(r.Name)) == "" {
		return errors.New("recipe name is empty")
	}
	if r.Servings.N <= 0 {
		return errors.New("servings must be a positive integer")
	}
	if len(r.Steps) == 0 {
		return errors.New("recipe has no steps")
	}
	return nil
}

// KnownDifficulty 回報難度是否為 Easy/Medium/Hard
func (r Recipe) KnownDifficulty() bool {
	switch strings.ToLower(strings.TrimSpace(string(r.Difficulty))) {
	case "easy", "medium", "hard":
		return true
	}
	return false
}

// Text 可接受字串、數字、布林或物件的文字欄位
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}

	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*t = ""
		return nil
	}

	// 數字、布林或物件保留原文
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return err
	}
	*t = Text(buf.String())
	return nil
}

// TextList 文字陣列，單一值視為只有一個元素
type TextList []Text

func (l *TextList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*l = nil
		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []Text
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}

	var single Text
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return err
	}
	*l = TextList{single}
	return nil
}

// Strings 轉為字串切片
func (l TextList) Strings() []string {
	out := make([]string, len(l))
	for i, t := range l {
		out[i] = string(t)
	}
	return out
}

// Servings 份量，接受數字或像 "2 people" 的字串，其他型別保留原文
type Servings struct {
	N    int
	Text string
}

func (s *Servings) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		s.N = int(num)
		s.Text = ""
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.Text = str
		s.N = leadingInt(str)
		return nil
	}

	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*s = Servings{}
		return nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return err
	}
	*s = Servings{Text: buf.String()}
	return nil
}

func (s Servings) MarshalJSON() ([]byte, error) {
	if s.Text != "" {
		return json.Marshal(s.Text)
	}
	return json.Marshal(s.N)
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if end == -1 {
		end = len(s)
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
