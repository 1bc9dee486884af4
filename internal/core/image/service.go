package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // 支援 WebP
)

var (
	// ErrUnsupportedImage 圖片無法讀取或格式不支援
	ErrUnsupportedImage = errors.New("unsupported image")
	// ErrImageTooLarge 圖片超出大小限制
	ErrImageTooLarge = errors.New("image too large")
)

// Service 圖片讀取服務
type Service struct {
	maxSizeBytes int64
	// maxEdge 送往遠端模型前的最長邊，0 表示不縮放
	maxEdge int
}

// NewService 創建新的圖片讀取服務
func NewService(maxSizeBytes int64, maxEdge int) *Service {
	return &Service{
		maxSizeBytes: maxSizeBytes,
		maxEdge:      maxEdge,
	}
}

// Load 從路徑讀取並解碼圖片
func (s *Service) Load(path string) (image.Image, string, error) {
	data, err := s.readFile(path)
	if err != nil {
		return nil, "", err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to decode image: %v", ErrUnsupportedImage, err)
	}

	// 檢查圖片格式
	if !isSupportedFormat(format) {
		return nil, "", fmt.Errorf("%w: unsupported image format: %s", ErrUnsupportedImage, format)
	}

	return img, format, nil
}

// ReadJPEG 讀取圖片並轉換為 JPEG，必要時縮小
func (s *Service) ReadJPEG(path string) ([]byte, error) {
	img, _, err := s.Load(path)
	if err != nil {
		return nil, err
	}

	img = s.shrink(img)

	// 將圖片轉換為 JPEG 格式
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode image as JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnsupportedImage, path)
	}

	// 檢查文件大小
	if s.maxSizeBytes > 0 && info.Size() > s.maxSizeBytes {
		return nil, fmt.Errorf("%w: image size exceeds maximum limit of %d bytes", ErrImageTooLarge, s.maxSizeBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return data, nil
}

// shrink 等比縮小到 maxEdge 以內
func (s *Service) shrink(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if s.maxEdge <= 0 || (w <= s.maxEdge && h <= s.maxEdge) {
		return img
	}

	scale := float64(s.maxEdge) / float64(max(w, h))
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	supportedFormats := map[string]bool{
		"jpeg": true,
		"jpg":  true,
		"png":  true,
		"gif":  true,
		"webp": true,
	}
	return supportedFormats[format]
}
