package yolo

import (
	"fmt"
	"sort"
)

// Box 原圖座標下的單一偵測
type Box struct {
	ClassIndex int
	Score      float64
	X1, Y1     float64
	X2, Y2     float64
}

// decode 解析 YOLOv8 輸出 [1, 4+C, N] 或 [1, N, 4+C]，
// 每個候選框為 (cx, cy, w, h) 加上 C 個類別分數
func decode(output []float32, shape []int, threshold float64, normalized bool, inW, inH int, t transform) ([]Box, error) {
	if len(shape) != 3 || shape[0] != 1 {
		return nil, fmt.Errorf("unexpected output shape %v", shape)
	}
	if shape[1]*shape[2] != len(output) {
		return nil, fmt.Errorf("output length %d does not match shape %v", len(output), shape)
	}

	channels, count := shape[1], shape[2]
	channelsFirst := true
	if channels > count {
		channels, count = count, channels
		channelsFirst = false
	}
	if channels <= 4 {
		return nil, fmt.Errorf("output shape %v has no class scores", shape)
	}

	at := func(c, i int) float64 {
		if channelsFirst {
			return float64(output[c*count+i])
		}
		return float64(output[i*channels+c])
	}

	sx, sy := 1.0, 1.0
	if normalized {
		sx, sy = float64(inW), float64(inH)
	}

	var boxes []Box
	for i := 0; i < count; i++ {
		best, bestScore := -1, 0.0
		for c := 4; c < channels; c++ {
			if s := at(c, i); best == -1 || s > bestScore {
				best, bestScore = c-4, s
			}
		}
		if bestScore < threshold {
			continue
		}

		cx, cy := at(0, i)*sx, at(1, i)*sy
		w, h := at(2, i)*sx, at(3, i)*sy
		x1, y1 := t.toOriginal(cx-w/2, cy-h/2)
		x2, y2 := t.toOriginal(cx+w/2, cy+h/2)
		boxes = append(boxes, Box{ClassIndex: best, Score: bestScore, X1: x1, Y1: y1, X2: x2, Y2: y2})
	}
	return boxes, nil
}

// nms 依類別做非極大值抑制
func nms(boxes []Box, iouThreshold float64) []Box {
	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].Score > boxes[j].Score
	})

	kept := make([]Box, 0, len(boxes))
	suppressed := make([]bool, len(boxes))
	for i := range boxes {
		if suppressed[i] {
			continue
		}
		kept = append(kept, boxes[i])
		for j := i + 1; j < len(boxes); j++ {
			if !suppressed[j] && boxes[j].ClassIndex == boxes[i].ClassIndex && iou(boxes[i], boxes[j]) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

func iou(a, b Box) float64 {
	ix1, iy1 := max(a.X1, b.X1), max(a.Y1, b.Y1)
	ix2, iy2 := min(a.X2, b.X2), min(a.Y2, b.Y2)
	if ix2 <= ix1 || iy2 <= iy1 {
		return 0
	}
	inter := (ix2 - ix1) * (iy2 - iy1)
	union := (a.X2-a.X1)*(a.Y2-a.Y1) + (b.X2-b.X1)*(b.Y2-b.Y1) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
