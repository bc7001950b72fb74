// Package blob stores uploaded media (avatars, covers, post and story images).
package blob

import (
	"context"
	"fmt"
	"io"

	"social-go/internal/config"
)

// FileInfo 包含上传文件的基本信息和访问路径。
type FileInfo struct {
	URL      string `json:"url"`      // 可公开访问的文件 URL
	Key      string `json:"key"`      // 文件在存储系统中的标识符
	Size     int64  `json:"size"`     // 文件大小 (字节)
	MimeType string `json:"mimeType"` // 文件的 MIME 类型
	FileName string `json:"fileName"` // 原始文件名
}

// Store 定义了文件存储操作的接口。
type Store interface {
	// Upload writes reader under a fresh unique key. size may be -1 when
	// unknown.
	Upload(ctx context.Context, reader io.Reader, size int64, fileName, mimeType string) (*FileInfo, error)
	Delete(ctx context.Context, key string) error
}

// New selects the Store implementation configured by STORAGE.TYPE.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case "local":
		return NewLocalStore(cfg.LocalPath, cfg.BaseURL)
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
