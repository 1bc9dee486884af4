package yolo

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// letterbox 的填充灰階值
const padValue = 114

// transform 記錄 letterbox 縮放，用於把座標還原到原圖
type transform struct {
	scale      float64
	padX, padY float64
	srcW, srcH float64
}

// toOriginal 將模型輸入座標轉回原圖座標，並限制在圖片範圍內
func (t transform) toOriginal(x, y float64) (float64, float64) {
	ox := (x - t.padX) / t.scale
	oy := (y - t.padY) / t.scale
	return clampRange(ox, 0, t.srcW), clampRange(oy, 0, t.srcH)
}

// letterbox 等比縮放到 width x height 並置中填充，輸出 NHWC float32 (0-1)
func letterbox(img image.Image, width, height int) ([]float32, transform) {
	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()

	scale := min(float64(width)/float64(srcW), float64(height)/float64(srcH))
	newW := max(1, int(float64(srcW)*scale+0.5))
	newH := max(1, int(float64(srcH)*scale+0.5))
	padX := (width - newW) / 2
	padY := (height - newH) / 2

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.RGBA{padValue, padValue, padValue, 255}}, image.Point{}, draw.Src)
	draw.BiLinear.Scale(canvas, image.Rect(padX, padY, padX+newW, padY+newH), img, b, draw.Src, nil)

	input := make([]float32, width*height*3)
	pix := canvas.Pix
	for i, j := 0, 0; i < len(pix); i, j = i+4, j+3 {
		input[j] = float32(pix[i]) / 255
		input[j+1] = float32(pix[i+1]) / 255
		input[j+2] = float32(pix[i+2]) / 255
	}

	return input, transform{
		scale: scale,
		padX:  float64(padX),
		padY:  float64(padY),
		srcW:  float64(srcW),
		srcH:  float64(srcH),
	}
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
