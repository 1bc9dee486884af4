package detection

import (
	"math"
	"strings"
)

// Record 各後端的原始辨識紀錄
type Record interface {
	record()
}

// VisionRecord 視覺語言模型輸出，沒有邊界框
type VisionRecord struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// FoodRecord 遠端食材偵測輸出，中心點加寬高
type FoodRecord struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// LocalRecord 本地模型輸出，角點座標加類別索引
type LocalRecord struct {
	ClassIndex int
	Confidence float64
	X1, Y1     float64
	X2, Y2     float64
	// Labels 類別標籤表，索引超出範圍時名稱為空
	Labels []string
}

func (VisionRecord) record() {}
func (FoodRecord) record()   {}
func (LocalRecord) record()  {}

// Normalize 將原始紀錄轉為標準 Detection，名稱為空時回傳 false
func Normalize(r Record) (Detection, bool) {
	var d Detection
	switch rec := r.(type) {
	case VisionRecord:
		d = Detection{Name: rec.Name, Confidence: rec.Confidence}
	case FoodRecord:
		d = Detection{
			Name:       rec.Class,
			Confidence: rec.Confidence,
			BBox: cornerBox(
				rec.X-rec.Width/2, rec.Y-rec.Height/2,
				rec.X+rec.Width/2, rec.Y+rec.Height/2,
			),
		}
	case LocalRecord:
		name := ""
		if rec.ClassIndex >= 0 && rec.ClassIndex < len(rec.Labels) {
			name = rec.Labels[rec.ClassIndex]
		}
		d = Detection{
			Name:       name,
			Confidence: rec.Confidence,
			BBox:       cornerBox(rec.X1, rec.Y1, rec.X2, rec.Y2),
		}
	default:
		return Detection{}, false
	}

	d.Name = strings.ToLower(strings.TrimSpace(d.Name))
	if d.Name == "" {
		return Detection{}, false
	}
	d.Confidence = clamp01(d.Confidence)
	return d, true
}

// NormalizeAll 批次標準化，丟棄無效紀錄
func NormalizeAll[R Record](records []R) []Detection {
	out := make([]Detection, 0, len(records))
	for _, r := range records {
		if d, ok := Normalize(r); ok {
			out = append(out, d)
		}
	}
	return out
}

func cornerBox(x1, y1, x2, y2 float64) *BBox {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return &BBox{x1, y1, x2, y2}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
