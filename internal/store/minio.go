package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectScheme prefixes save targets that go to the object store.
const ObjectScheme = "s3://"

// MinioConfig holds object store connection settings.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// objectPutter is the subset of *minio.Client used by MinioStore.
type objectPutter interface {
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64,
		opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioStore uploads documents to an S3-compatible bucket.
type MinioStore struct {
	client objectPutter
	bucket string
	prefix string
}

// NewMinioStore connects to the configured endpoint and verifies the bucket exists.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("minio: endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}

	return &MinioStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Save uploads r under the store prefix. A leading "s3://<bucket>/" on name is
// stripped.
func (s *MinioStore) Save(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	object := s.objectName(name)
	if object == "" {
		return "", errors.New("save: empty object name")
	}
	_, err := s.client.PutObject(ctx, s.bucket, object, r, size, minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", object, err)
	}
	return ObjectScheme + s.bucket + "/" + object, nil
}

func (s *MinioStore) objectName(name string) string {
	name = strings.TrimPrefix(name, ObjectScheme)
	name = strings.TrimPrefix(name, s.bucket+"/")
	name = strings.TrimLeft(name, "/")
	if name == "" {
		return ""
	}
	return path.Join(s.prefix, name)
}

// Router sends "s3://" targets to the object store and everything else to the
// local filesystem.
type Router struct {
	Local  Saver
	Remote Saver
}

// Save dispatches on the target name.
func (rt *Router) Save(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if strings.HasPrefix(name, ObjectScheme) {
		if rt.Remote == nil {
			return "", fmt.Errorf("save: object storage not configured for %s", name)
		}
		return rt.Remote.Save(ctx, name, r, size)
	}
	return rt.Local.Save(ctx, name, r, size)
}
