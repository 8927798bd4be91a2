package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageService persists generated assets and exposes a public URL for each
type StorageService interface {
	Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
}

// UploadError wraps a failed blob store operation
type UploadError struct {
	ObjectName string
	Err        error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %s: %v", e.ObjectName, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// MinIOStorageService implements StorageService on an S3-compatible store
type MinIOStorageService struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinIOStorageService connects to the store and verifies the bucket exists,
// creating it when missing
func NewMinIOStorageService(ctx context.Context, endpoint, accessKey, secretKey, bucket, publicURL string, useSSL bool) (*MinIOStorageService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOStorageService{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// Upload stores the object and returns its public URL
func (s *MinIOStorageService) Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", &UploadError{ObjectName: objectName, Err: err}
	}

	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, objectName), nil
}
