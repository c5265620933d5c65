// Package blob stores chat attachments in an S3-compatible bucket.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds the object storage connection settings
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStore uploads attachments and returns the object key as the file id
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to the endpoint and creates the bucket if missing
func NewMinioStore(ctx context.Context, cfg Config) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// Upload stores data under a fresh key and returns that key
func (s *MinioStore) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := ObjectKey(name, time.Now())
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return key, nil
}

// Delete removes an uploaded object
func (s *MinioStore) Delete(ctx context.Context, fileId string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, fileId, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", fileId, err)
	}
	return nil
}

// ObjectKey builds "chat-files/<unix-millis>-<uuid>-<base name>" so two
// uploads of the same file never collide.
func ObjectKey(name string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "file"
	}
	return fmt.Sprintf("chat-files/%d-%s-%s", now.UnixMilli(), uuid.New().String(), base)
}
