package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// FileSource serves schemas and CSV files from a local fixture directory.
type FileSource struct {
	dataDir string
}

// NewFileSource creates a FileSource reading from dataDir.
func NewFileSource(dataDir string) *FileSource {
	return &FileSource{dataDir: dataDir}
}

// FetchSchema reads "<dataDir>/<schema file>".
func (s *FileSource) FetchSchema(ctx context.Context, d Dataset) ([]byte, error) {
	const op = "FileSource.FetchSchema"

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.dataDir, d.SchemaFileName())
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, exception.NewFetchError(op, fmt.Sprintf("failed to read schema file [%s]", path), err)
	}
	logger.Infof("Json schema file loaded [%s]", path)
	return data, nil
}

// FetchData copies "<dataDir>/<data file>" to dest.
func (s *FileSource) FetchData(ctx context.Context, d Dataset, dest string) error {
	const op = "FileSource.FetchData"

	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(s.dataDir, d.DataFileName())
	f, err := os.Open(path)
	if err != nil {
		return exception.NewFetchError(op, fmt.Sprintf("failed to open csv file [%s]", path), err)
	}
	defer f.Close()
	logger.Infof("Path to csv resource found [%s].", path)

	if err := writeFile(dest, f); err != nil {
		return exception.NewFetchError(op, fmt.Sprintf("failed to copy [%s] to [%s]", path, dest), err)
	}
	logger.Infof("File copied to [%s].", dest)
	return nil
}

var _ DataSource = (*FileSource)(nil)
