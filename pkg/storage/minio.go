package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MaxAvatarSize is the largest avatar accepted (5 MB)
const MaxAvatarSize = 5 << 20

var ErrUnsupportedType = errors.New("unsupported image type")

// Storage defines the interface for avatar storage operations
type Storage interface {
	UploadAvatar(ctx context.Context, userID uuid.UUID, r io.Reader, size int64, fileName, contentType string) (*UploadResult, error)
	Delete(ctx context.Context, objectName string) error
}

// UploadResult contains the result of a file upload
type UploadResult struct {
	URL      string
	Key      string // object key in storage
	FileSize int64
	MimeType string
}

// MinIOStorage implements Storage interface using MinIO
type MinIOStorage struct {
	client    *minio.Client
	bucket    string
	endpoint  string
	publicURL string // External URL
	useSSL    bool
	now       func() time.Time
}

// Config holds MinIO connection configuration
type Config struct {
	Endpoint  string
	PublicURL string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinIO creates a new MinIO storage client and makes sure the bucket is publicly readable
func NewMinIO(ctx context.Context, cfg Config) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Printf("📦 Created MinIO bucket: %s", cfg.Bucket)

		if err := client.SetBucketPolicy(ctx, cfg.Bucket, publicReadPolicy(cfg.Bucket)); err != nil {
			log.Printf("⚠️  Failed to set bucket policy: %v", err)
		}
	}

	return &MinIOStorage{
		client:    client,
		bucket:    cfg.Bucket,
		endpoint:  cfg.Endpoint,
		publicURL: cfg.PublicURL,
		useSSL:    cfg.UseSSL,
		now:       time.Now,
	}, nil
}

// UploadAvatar stores an avatar image under avatars/<user>/
func (s *MinIOStorage) UploadAvatar(ctx context.Context, userID uuid.UUID, r io.Reader, size int64, fileName, contentType string) (*UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = detectContentType(ext)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrUnsupportedType
	}

	objectName := avatarKey(userID, s.now(), ext)
	_, err := s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=86400",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	return &UploadResult{
		URL:      s.GetPublicURL(objectName),
		Key:      objectName,
		FileSize: size,
		MimeType: contentType,
	}, nil
}

// Delete removes a file from MinIO
func (s *MinIOStorage) Delete(ctx context.Context, objectName string) error {
	return s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
}

// GetPublicURL returns the public URL for an object
func (s *MinIOStorage) GetPublicURL(objectName string) string {
	return publicURL(s.publicURL, s.endpoint, s.bucket, objectName, s.useSSL)
}

func publicURL(base, endpoint, bucket, objectName string, useSSL bool) string {
	if base != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), bucket, objectName)
	}

	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, endpoint, bucket, objectName)
}

func avatarKey(userID uuid.UUID, at time.Time, ext string) string {
	return fmt.Sprintf("avatars/%s/%d%s", userID, at.UnixNano(), ext)
}

func publicReadPolicy(bucket string) string {
	return `{
		"Version": "2012-10-17",
		"Statement": [{
			"Effect": "Allow",
			"Principal": {"AWS": ["*"]},
			"Action": ["s3:GetObject"],
			"Resource": ["arn:aws:s3:::` + bucket + `/*"]
		}]
	}`
}

// detectContentType returns MIME type based on file extension
func detectContentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return "application/octet-stream"
	}
}
