package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// PublicBaseURL overrides the scheme://host used in returned object URLs.
	PublicBaseURL string
}

type Store struct {
	client     *minio.Client
	bucketName string
	baseURL    string
	logger     *slog.Logger
}

// New buat koneksi MinIO dan pastikan bucket ada
func New(ctx context.Context, opt Options, logger *slog.Logger) (*Store, error) {
	cli, err := minio.New(opt.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opt.AccessKey, opt.SecretKey, ""),
		Secure: opt.UseSSL,
		Region: opt.Region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, opt.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opt.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, opt.Bucket, minio.MakeBucketOptions{Region: opt.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", opt.Bucket, err)
		}
	}

	base := opt.PublicBaseURL
	if base == "" {
		base = cli.EndpointURL().Scheme + "://" + cli.EndpointURL().Host
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: cli, bucketName: opt.Bucket, baseURL: base, logger: logger}, nil
}

func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".html":
		return "text/html"
	}
	return "application/octet-stream"
}

// Upload sends a local file under key.
func (s *Store) Upload(ctx context.Context, localPath, key string) (string, error) {
	_, err := s.client.FPutObject(ctx, s.bucketName, key, localPath, minio.PutObjectOptions{
		ContentType: contentTypeFor(localPath),
	})
	if err != nil {
		return "", err
	}
	return s.objectURL(key), nil
}

// UploadAndCleanup upload file ke Minio dan hapus file lokal setelahnya
func (s *Store) UploadAndCleanup(ctx context.Context, localPath, key string) (string, error) {
	url, err := s.Upload(ctx, localPath, key)
	if err != nil {
		return "", err
	}
	// upload sudah berhasil, jadi gagal hapus cukup di-log
	if removeErr := os.Remove(localPath); removeErr != nil {
		s.logger.Warn("failed to remove local file", "path", localPath, "error", removeErr)
	}
	return url, nil
}

// Put stores an in-memory object.
func (s *Store) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if contentType == "" {
		contentType = contentTypeFor(key)
	}
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return s.objectURL(key), nil
}

// URL publik (jika bucket public), kalau private harus generate presigned URL
func (s *Store) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucketName, key)
}
