package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"social-go/internal/blob"
	"social-go/internal/validation"
)

// Attachment is an uploaded image as received from a multipart form.
type Attachment struct {
	Reader   io.Reader
	Size     int64
	Filename string
}

// imageUploader validates and stores images for posts, stories and profiles.
type imageUploader struct {
	store    blob.Store
	maxBytes int64
}

func (u imageUploader) upload(ctx context.Context, field string, a Attachment) (*blob.FileInfo, error) {
	if a.Reader == nil {
		return nil, ValidationError(field, "No file uploaded")
	}
	if u.maxBytes > 0 && a.Size > u.maxBytes {
		return nil, ValidationError(field, fmt.Sprintf("File must be at most %d MB", u.maxBytes>>20))
	}
	r, mimeType, err := blob.SniffImage(a.Reader)
	if err != nil {
		if errors.Is(err, blob.ErrUnsupportedMedia) {
			return nil, &Error{Kind: KindValidation, Field: field, Message: ErrUnsupportedMedia.Message}
		}
		return nil, fmt.Errorf("read upload: %w", err)
	}
	info, err := u.store.Upload(ctx, r, a.Size, a.Filename, mimeType)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	return info, nil
}

// discard removes a stored file whose owning row was never written.
func (u imageUploader) discard(ctx context.Context, info *blob.FileInfo) {
	if info == nil {
		return
	}
	if err := u.store.Delete(ctx, info.Key); err != nil {
		zap.L().Warn("delete orphaned upload failed", zap.String("key", info.Key), zap.Error(err))
	}
}

// validate runs struct validation and converts the first failure into a
// service validation error.
func validate(v any) error {
	if fe := validation.Struct(v); fe != nil {
		return ValidationError(fe.Field, fe.Message)
	}
	return nil
}
