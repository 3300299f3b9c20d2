// Package source provides the clients that materialise a dataset's schema and CSV
// content for the load pipeline: local fixture files, the remote analytics API and
// object storage.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
)

// Dataset identifies one remote dataset and its local fixtures.
type Dataset struct {
	// Name is the dataset name, also used as the step name.
	Name string `validate:"required"`
	// Collection is the target MongoDB collection.
	Collection string `validate:"required"`
	// RID is the remote dataset resource identifier.
	RID string
	// Path is the dataset path used in schema queries.
	Path string
	// SchemaFile and DataFile name the fixtures in file and storage mode.
	SchemaFile string
	DataFile   string
}

// SchemaFileName returns SchemaFile, or "<collection>Schema.json" when it is unset.
func (d Dataset) SchemaFileName() string {
	if d.SchemaFile != "" {
		return d.SchemaFile
	}
	return d.Collection + "Schema.json"
}

// DataFileName returns DataFile, or "<collection>.csv" when it is unset.
func (d Dataset) DataFileName() string {
	if d.DataFile != "" {
		return d.DataFile
	}
	return d.Collection + ".csv"
}

// DataSource fetches the schema and the CSV content of a dataset.
type DataSource interface {
	// FetchSchema returns the raw schema JSON of the dataset.
	FetchSchema(ctx context.Context, d Dataset) ([]byte, error)
	// FetchData writes the dataset's CSV content to dest, creating its directory.
	FetchData(ctx context.Context, d Dataset, dest string) error
}

type schemaDocument struct {
	FoundrySchema *struct {
		FieldSchemaList []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"fieldSchemaList"`
	} `json:"foundrySchema"`
	Columns []json.RawMessage `json:"columns"`
}

// ParseColumns extracts the ordered column names from a schema document. It reads
// foundrySchema.fieldSchemaList[].name and falls back to a top-level "columns" array
// of names or {"name": ...} objects.
func ParseColumns(data []byte) ([]string, error) {
	const op = "source.ParseColumns"

	var doc schemaDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, exception.NewFetchError(op, "schema response is not valid JSON", err)
	}

	var columns []string
	if doc.FoundrySchema != nil && len(doc.FoundrySchema.FieldSchemaList) > 0 {
		for _, f := range doc.FoundrySchema.FieldSchemaList {
			columns = append(columns, f.Name)
		}
	} else {
		for i, raw := range doc.Columns {
			var name string
			if err := json.Unmarshal(raw, &name); err != nil {
				var obj struct {
					Name string `json:"name"`
				}
				if err := json.Unmarshal(raw, &obj); err != nil {
					return nil, exception.NewFetchError(op, fmt.Sprintf("column %d is neither a name nor an object", i), err)
				}
				name = obj.Name
			}
			columns = append(columns, name)
		}
	}

	if len(columns) == 0 {
		return nil, exception.NewFetchError(op, "schema lists no columns", nil)
	}
	for i, c := range columns {
		if c == "" {
			return nil, exception.NewFetchError(op, fmt.Sprintf("column %d has an empty name", i), nil)
		}
	}
	return columns, nil
}

// writeFile streams r into a uuid-suffixed ".part" file next to dest and renames it into place,
// so dest never holds a partial download.
func writeFile(dest string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	part := fmt.Sprintf("%s.%s.part", dest, uuid.NewString())
	f, err := os.Create(part)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(part)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(part)
		return err
	}
	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return err
	}
	return nil
}
