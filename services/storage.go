package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"picstream-api/config"
)

// Storage persists uploaded post images. Save returns the key the object is
// stored under and a URL the client can fetch it from.
type Storage interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (url string, err error)
	Delete(ctx context.Context, key string) error
	ListKeys(ctx context.Context) ([]string, error)
}

// LocalStorage writes images to a directory served at /uploads.
type LocalStorage struct {
	dir string
}

func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &LocalStorage{dir: dir}, nil
}

func (ls *LocalStorage) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	f, err := os.Create(filepath.Join(ls.dir, key))
	if err != nil {
		return "", fmt.Errorf("creating image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing image file: %w", err)
	}
	return "/uploads/" + key, nil
}

func (ls *LocalStorage) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(ls.dir, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing image file: %w", err)
	}
	return nil
}

func (ls *LocalStorage) ListKeys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(ls.dir)
	if err != nil {
		return nil, fmt.Errorf("listing upload directory: %w", err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			keys = append(keys, e.Name())
		}
	}
	return keys, nil
}

// MinioStorage stores images in an object storage bucket.
type MinioStorage struct {
	client *minio.Client
	bucket string
	useSSL bool
}

func NewMinioStorage(cfg *config.Config) (*MinioStorage, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	ms := &MinioStorage{client: client, bucket: cfg.MinioBucket, useSSL: cfg.MinioUseSSL}

	exists, err := client.BucketExists(context.Background(), ms.bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), ms.bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket: %w", err)
		}
	}
	return ms, nil
}

func (ms *MinioStorage) Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := ms.client.PutObject(ctx, ms.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("uploading image object: %w", err)
	}

	scheme := "http"
	if ms.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, ms.client.EndpointURL().Host, ms.bucket, key), nil
}

func (ms *MinioStorage) Delete(ctx context.Context, key string) error {
	if err := ms.client.RemoveObject(ctx, ms.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("removing image object: %w", err)
	}
	return nil
}

func (ms *MinioStorage) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string
	for obj := range ms.client.ListObjects(ctx, ms.bucket, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing image objects: %w", obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// NewStorage picks the backend from configuration.
func NewStorage(cfg *config.Config) (Storage, error) {
	if cfg.UseMinio {
		return NewMinioStorage(cfg)
	}
	return NewLocalStorage(cfg.UploadDir)
}
