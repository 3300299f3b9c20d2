// Package minio provides an S3-compatible implementation of the storage adapter interfaces
// on top of minio-go.
package minio

import (
	"context"
	"fmt"
	"io"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	storageAdapter "github.com/tigerroll/surfin-datasync/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/surfin-datasync/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// ProviderType defines the type identifier for this provider.
const ProviderType = "minio"

type minioAdapter struct {
	client *miniogo.Client
	cfg    storageConfig.StorageConfig
	name   string
}

var _ storageAdapter.StorageConnection = (*minioAdapter)(nil)

// NewMinioAdapter creates a client for cfg.Endpoint. No request is made until first use.
func NewMinioAdapter(ctx context.Context, cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio storage adapter '%s': endpoint must be specified", name)
	}
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio storage adapter '%s': failed to create client: %w", name, err)
	}
	return &minioAdapter{client: client, cfg: cfg, name: name}, nil
}

func (a *minioAdapter) Close() error { return nil }

func (a *minioAdapter) Type() string { return ProviderType }

func (a *minioAdapter) Name() string { return a.name }

func (a *minioAdapter) bucketName(bucket string) (string, error) {
	if bucket == "" {
		bucket = a.cfg.BucketName
	}
	if bucket == "" {
		return "", fmt.Errorf("minio storage adapter '%s': no bucket given and bucket_name not configured", a.name)
	}
	return bucket, nil
}

func (a *minioAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	b, err := a.bucketName(bucket)
	if err != nil {
		return err
	}
	if _, err := a.client.PutObject(ctx, b, objectName, data, -1, miniogo.PutObjectOptions{ContentType: contentType}); err != nil {
		return fmt.Errorf("failed to upload s3 object '%s/%s': %w", b, objectName, err)
	}
	logger.Debugf("Uploaded s3 object '%s/%s' (minio adapter '%s').", b, objectName, a.name)
	return nil
}

// Download stats the object first so a missing key fails here rather than on the first read.
func (a *minioAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	b, err := a.bucketName(bucket)
	if err != nil {
		return nil, err
	}
	obj, err := a.client.GetObject(ctx, b, objectName, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open s3 object '%s/%s': %w", b, objectName, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("failed to open s3 object '%s/%s': %w", b, objectName, err)
	}
	return obj, nil
}

func (a *minioAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	b, err := a.bucketName(bucket)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	for obj := range a.client.ListObjects(ctx, b, miniogo.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return fmt.Errorf("failed to list s3 objects in '%s' with prefix '%s': %w", b, prefix, obj.Err)
		}
		if err := fn(obj.Key); err != nil {
			return err
		}
	}
	return nil
}

// DeleteObject removes the object. S3 treats deleting a missing key as success.
func (a *minioAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	b, err := a.bucketName(bucket)
	if err != nil {
		return err
	}
	if err := a.client.RemoveObject(ctx, b, objectName, miniogo.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete s3 object '%s/%s': %w", b, objectName, err)
	}
	return nil
}

// NewMinioProvider creates the provider for "minio" connections.
func NewMinioProvider(cfg *coreConfig.Config) storageAdapter.StorageProvider {
	return storageAdapter.NewCachingProvider(ProviderType, cfg, NewMinioAdapter)
}
