// Package storage defines the common interfaces for object storage adapters.
// These interfaces let the data source read schemas and CSV files from different
// backends (local file system, GCS, S3-compatible stores) through a unified API.
package storage

import (
	"context"
	"io"
)

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload uploads data to the specified bucket and object name.
	// 'data' is the stream of data to upload. 'contentType' is the MIME type of the data.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download downloads data from the specified bucket and object name.
	// It returns a ReadCloser which must be closed by the caller after use.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects lists objects within the specified bucket and prefix.
	// The 'fn' callback function is called for each object name found, allowing for
	// efficient processing of large numbers of objects without loading all into memory.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject deletes the specified object from the bucket. A missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is a named, open connection to one storage backend.
type StorageConnection interface {
	StorageExecutor

	// Close releases the resources held by the connection.
	Close() error
	// Type returns the provider type, e.g. "local".
	Type() string
	// Name returns the configured connection name.
	Name() string
}

// StorageProvider opens and caches the connections of one provider type.
type StorageProvider interface {
	// GetConnection returns the connection with the specified name, opening it on first use.
	GetConnection(ctx context.Context, name string) (StorageConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the provider type handled by this provider (e.g., "gcs").
	Type() string
}
