package source

import (
	"context"
	"fmt"
	"io"
	"path"

	storage "github.com/tigerroll/surfin-datasync/pkg/batch/adapter/storage"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// ConnectionResolver resolves named storage connections.
type ConnectionResolver interface {
	ResolveStorageConnection(ctx context.Context, name string) (storage.StorageConnection, error)
}

// StorageSource reads schema and CSV objects from object storage. Objects are named like the
// local fixtures and live under an optional prefix.
type StorageSource struct {
	resolver ConnectionResolver
	connName string
	bucket   string
	prefix   string
}

// NewStorageSource creates a StorageSource over the connection connName. An empty bucket
// selects the connection's configured bucket.
func NewStorageSource(resolver ConnectionResolver, connName, bucket, prefix string) *StorageSource {
	return &StorageSource{resolver: resolver, connName: connName, bucket: bucket, prefix: prefix}
}

func (s *StorageSource) objectName(file string) string {
	if s.prefix == "" {
		return file
	}
	return path.Join(s.prefix, file)
}

func (s *StorageSource) open(ctx context.Context, op, object string) (io.ReadCloser, error) {
	conn, err := s.resolver.ResolveStorageConnection(ctx, s.connName)
	if err != nil {
		return nil, exception.NewFetchError(op, fmt.Sprintf("failed to resolve storage connection '%s'", s.connName), err)
	}
	rc, err := conn.Download(ctx, s.bucket, object)
	if err != nil {
		return nil, exception.NewFetchError(op, fmt.Sprintf("failed to download object [%s] from '%s'", object, s.connName), err)
	}
	return rc, nil
}

// FetchSchema downloads the schema object of d.
func (s *StorageSource) FetchSchema(ctx context.Context, d Dataset) ([]byte, error) {
	const op = "StorageSource.FetchSchema"

	object := s.objectName(d.SchemaFileName())
	rc, err := s.open(ctx, op, object)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, exception.NewFetchError(op, fmt.Sprintf("failed to read object [%s]", object), err)
	}
	logger.Infof("Json schema object loaded [%s:%s]", s.connName, object)
	return data, nil
}

// FetchData downloads the CSV object of d into dest.
func (s *StorageSource) FetchData(ctx context.Context, d Dataset, dest string) error {
	const op = "StorageSource.FetchData"

	object := s.objectName(d.DataFileName())
	rc, err := s.open(ctx, op, object)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := writeFile(dest, rc); err != nil {
		return exception.NewFetchError(op, fmt.Sprintf("failed to write object [%s] to [%s]", object, dest), err)
	}
	logger.Infof("Object [%s:%s] downloaded to [%s].", s.connName, object, dest)
	return nil
}

var _ DataSource = (*StorageSource)(nil)
