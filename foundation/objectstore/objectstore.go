// Package objectstore provides support for uploading files to an s3 compatible object store.
package objectstore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config is the required properties to use the object store.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store wraps a minio client with the bucket it operates on.
type Store struct {
	bucket string
	client *minio.Client
}

// Open knows how to create an object store client based on the configuration.
func Open(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}
	return &Store{
		bucket: cfg.Bucket,
		client: client,
	}, nil
}

// Bucket returns the bucket name the store uploads into.
func (s *Store) Bucket() string {
	return s.bucket
}

// UploadFile uploads the file at localPath under key and returns the
// destination in bucket/key form.
func (s *Store) UploadFile(ctx context.Context, localPath string, key string) (string, error) {
	_, err := s.client.FPutObject(ctx, s.bucket, key, localPath,
		minio.PutObjectOptions{ContentType: "text/csv"})
	if err != nil {
		return "", fmt.Errorf("uploading %s to object store: %w", filepath.Base(localPath), err)
	}
	return fmt.Sprintf("%s/%s", s.bucket, key), nil
}
