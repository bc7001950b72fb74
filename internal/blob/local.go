package blob

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore keeps files on the local filesystem and serves them under
// baseURL through the API server's static handler.
type LocalStore struct {
	basePath string // e.g. "./uploads"
	baseURL  string // e.g. "/uploads"
}

func NewLocalStore(basePath, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory %q: %w", basePath, err)
	}
	return &LocalStore{basePath: basePath, baseURL: baseURL}, nil
}

// Upload 将文件保存到本地文件系统，文件名为随机 UUID 加扩展名。
func (s *LocalStore) Upload(ctx context.Context, reader io.Reader, size int64, fileName, mimeType string) (*FileInfo, error) {
	key := uuid.NewString() + extensionFor(fileName, mimeType)
	dstPath := filepath.Join(s.basePath, key)

	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, fmt.Errorf("create %q: %w", dstPath, err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, reader)
	if err != nil {
		os.Remove(dstPath)
		return nil, fmt.Errorf("write %q: %w", dstPath, err)
	}
	if size >= 0 && written != size {
		os.Remove(dstPath)
		return nil, fmt.Errorf("size mismatch: expected %d, wrote %d", size, written)
	}

	return &FileInfo{
		URL:      strings.TrimSuffix(s.baseURL, "/") + "/" + url.PathEscape(key),
		Key:      key,
		Size:     written,
		MimeType: mimeType,
		FileName: fileName,
	}, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid key %q", key)
	}
	err := os.Remove(filepath.Join(s.basePath, key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func extensionFor(fileName, mimeType string) string {
	if ext := filepath.Ext(fileName); ext != "" {
		return strings.ToLower(ext)
	}
	if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
		return exts[0]
	}
	return ""
}
