package image

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"recipe-vision/internal/pkg/common"
)

// 允許上傳的副檔名
var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"webp": true,
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// IsAllowedExtension 檢查檔名副檔名是否在允許清單中
func IsAllowedExtension(filename string) bool {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 || idx == len(filename)-1 {
		return false
	}
	return allowedExtensions[strings.ToLower(filename[idx+1:])]
}

// SecureFilename 移除路徑與不安全字元
func SecureFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeNameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	return name
}

// Store 上傳檔案儲存
type Store struct {
	dir          string
	maxSizeBytes int64
}

// NewStore 創建上傳儲存並確保目錄存在
func NewStore(dir string, maxSizeBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Store{dir: dir, maxSizeBytes: maxSizeBytes}, nil
}

// Dir 返回上傳目錄
func (s *Store) Dir() string {
	return s.dir
}

// Save 儲存上傳檔案，返回檔案路徑
func (s *Store) Save(fh *multipart.FileHeader) (string, error) {
	if !IsAllowedExtension(fh.Filename) {
		return "", fmt.Errorf("%w: extension not allowed: %s", ErrUnsupportedImage, fh.Filename)
	}
	if s.maxSizeBytes > 0 && fh.Size > s.maxSizeBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrImageTooLarge, fh.Size)
	}

	name := SecureFilename(fh.Filename)
	if name == "" || !IsAllowedExtension(name) {
		name = "upload" + strings.ToLower(filepath.Ext(fh.Filename))
	}
	path := filepath.Join(s.dir, common.GenerateUUID()+"_"+name)

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return path, nil
}

// Remove 刪除已處理的上傳檔案
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
