package source_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/surfin-datasync/pkg/batch/adapter/source"
	storageAdapter "github.com/tigerroll/surfin-datasync/pkg/batch/adapter/storage"
	"github.com/tigerroll/surfin-datasync/pkg/batch/adapter/storage/local"
	config "github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
)

var haulageInfo = source.Dataset{
	Name:       "haulage_info",
	Collection: "haulageInfo",
	RID:        "ri.foundry.main.dataset.49252e4a-2697-436a-876f-cf73c28d90b9",
	Path:       "/maersk/advanced_analytics/spotlanes/data_sets/haulage_info",
}

func TestParseColumns_FoundrySchema(t *testing.T) {
	cols, err := source.ParseColumns([]byte(`{"foundrySchema":{"fieldSchemaList":[
		{"name":"FK_SHIPMENT_VERSION_IMP_EXP","type":"STRING"},
		{"name":"DIRECTION","type":"STRING"},
		{"name":"MODE","type":"STRING"}]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"FK_SHIPMENT_VERSION_IMP_EXP", "DIRECTION", "MODE"}, cols)
}

func TestParseColumns_ColumnsFallback(t *testing.T) {
	cols, err := source.ParseColumns([]byte(`{"columns":["A",{"name":"B"},"C"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, cols)
}

func TestParseColumns_Invalid(t *testing.T) {
	for name, body := range map[string]string{
		"not json":    `<html>`,
		"empty":       `{}`,
		"bad column":  `{"columns":[42]}`,
		"empty names": `{"columns":[""]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := source.ParseColumns([]byte(body))
			require.Error(t, err)
			assert.True(t, exception.IsFetch(err))
		})
	}
}

func TestDataset_FileNames(t *testing.T) {
	assert.Equal(t, "haulageInfoSchema.json", haulageInfo.SchemaFileName())
	assert.Equal(t, "haulageInfo.csv", haulageInfo.DataFileName())

	d := haulageInfo
	d.SchemaFile = "custom.json"
	d.DataFile = "custom.csv"
	assert.Equal(t, "custom.json", d.SchemaFileName())
	assert.Equal(t, "custom.csv", d.DataFileName())
}

func sourceConfig(endpoint string) config.SourceConfig {
	return config.SourceConfig{
		Mode:              config.SourceModeAPI,
		Endpoint:          endpoint,
		Token:             "secret-token",
		Branch:            "master",
		RetryLimit:        3,
		RequestsPerSecond: 1000,
	}
}

func TestAPISource_FetchSchema(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		io.WriteString(w, `{"foundrySchema":{"fieldSchemaList":[{"name":"A"}]}}`)
	}))
	defer server.Close()

	s := source.NewAPISource(sourceConfig(server.URL), server.Client(), nil)
	data, err := s.FetchSchema(context.Background(), haulageInfo)
	require.NoError(t, err)
	assert.JSONEq(t, `{"foundrySchema":{"fieldSchemaList":[{"name":"A"}]}}`, string(data))
	assert.Equal(t, "SELECT * FROM `master`.`/maersk/advanced_analytics/spotlanes/data_sets/haulage_info` LIMIT 10", gotBody["query"])
}

func TestAPISource_RetriesThenFetchError(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s := source.NewAPISource(sourceConfig(server.URL), server.Client(), nil)
	_, err := s.FetchSchema(context.Background(), haulageInfo)
	require.Error(t, err)
	assert.True(t, exception.IsFetch(err))
	assert.Contains(t, err.Error(), "[3] attempts. Unable to get the data from")
	assert.Equal(t, int32(3), hits.Load())
}

func TestAPISource_FetchData_RecoversOnRetry(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/datasets/"+haulageInfo.RID+"/branches/master/csv", r.URL.Path)
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, "A,B\n1,2\n")
	}))
	defer server.Close()

	cfg := sourceConfig(server.URL)
	cfg.LogWhileWaiting = true
	s := source.NewAPISource(cfg, server.Client(), nil)

	dest := filepath.Join(t.TempDir(), "csv", "haulage_info.csv")
	require.NoError(t, s.FetchData(context.Background(), haulageInfo, dest))
	assert.Equal(t, int32(2), hits.Load())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "A,B\n1,2\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no partial files are left behind")
}

func TestAPISource_MissingToken(t *testing.T) {
	cfg := sourceConfig("http://127.0.0.1:1")
	cfg.Token = ""
	s := source.NewAPISource(cfg, nil, nil)

	_, err := s.FetchSchema(context.Background(), haulageInfo)
	assert.True(t, exception.IsValidation(err))
	err = s.FetchData(context.Background(), haulageInfo, filepath.Join(t.TempDir(), "x.csv"))
	assert.True(t, exception.IsValidation(err))
}

func TestAPISource_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := source.NewAPISource(sourceConfig(server.URL), server.Client(), nil)
	_, err := s.FetchSchema(ctx, haulageInfo)
	require.Error(t, err)
	assert.True(t, exception.IsFetch(err))
}

func TestFileSource(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "haulageInfoSchema.json"), []byte(`{"columns":["A"]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "haulageInfo.csv"), []byte("1\n2\n"), 0o644))

	s := source.NewFileSource(dataDir)
	schema, err := s.FetchSchema(context.Background(), haulageInfo)
	require.NoError(t, err)
	assert.Equal(t, `{"columns":["A"]}`, string(schema))

	dest := filepath.Join(t.TempDir(), "nested", "csv", "haulage_info.csv")
	require.NoError(t, s.FetchData(context.Background(), haulageInfo, dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n", string(data))

	missing := haulageInfo
	missing.Collection = "absent"
	_, err = s.FetchSchema(context.Background(), missing)
	assert.True(t, exception.IsFetch(err))
	assert.True(t, exception.IsFetch(s.FetchData(context.Background(), missing, dest)))
}

func TestStorageSource_Local(t *testing.T) {
	ctx := context.Background()
	cfg := config.NewConfig()
	cfg.Surfin.Storage = map[string]interface{}{
		"fixtures": map[string]interface{}{"type": "local", "base_dir": t.TempDir(), "bucket_name": "datasets"},
	}
	resolver := storageAdapter.NewConnectionResolver([]storageAdapter.StorageProvider{local.NewLocalProvider(cfg)}, cfg)
	conn, err := resolver.ResolveStorageConnection(ctx, "fixtures")
	require.NoError(t, err)
	require.NoError(t, conn.Upload(ctx, "", "spotlanes/haulageInfoSchema.json", strings.NewReader(`{"columns":["A","B"]}`), "application/json"))
	require.NoError(t, conn.Upload(ctx, "", "spotlanes/haulageInfo.csv", strings.NewReader("1,2\n"), "text/csv"))

	s := source.NewStorageSource(resolver, "fixtures", "", "spotlanes")
	schema, err := s.FetchSchema(ctx, haulageInfo)
	require.NoError(t, err)
	cols, err := source.ParseColumns(schema)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, cols)

	dest := filepath.Join(t.TempDir(), "haulage_info.csv")
	require.NoError(t, s.FetchData(ctx, haulageInfo, dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "1,2\n", string(data))

	unknown := source.NewStorageSource(resolver, "nope", "", "")
	_, err = unknown.FetchSchema(ctx, haulageInfo)
	assert.True(t, exception.IsFetch(err))
}
