package blob

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"social-go/internal/config"
)

// S3Store implements Store for S3-compatible storage (AWS S3, MinIO, R2).
type S3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("s3 storage requires STORAGE_S3_BUCKET_NAME")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var client *s3.Client
	publicURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.BucketName, cfg.Region)
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // MinIO and most S3-compatible services
		})
		publicURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.BucketName
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	zap.L().Info("s3 storage initialized",
		zap.String("bucket", cfg.BucketName),
		zap.String("region", cfg.Region),
		zap.String("endpoint", cfg.Endpoint),
	)
	return &S3Store{client: client, bucket: cfg.BucketName, publicURL: publicURL}, nil
}

func (s *S3Store) Upload(ctx context.Context, reader io.Reader, size int64, fileName, mimeType string) (*FileInfo, error) {
	key := "media/" + uuid.NewString() + extensionFor(fileName, mimeType)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(mimeType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("upload to s3: %w", err)
	}

	return &FileInfo{
		URL:      s.publicURL + "/" + key,
		Key:      key,
		Size:     size,
		MimeType: mimeType,
		FileName: fileName,
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete from s3: %w", err)
	}
	return nil
}
