package config

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
)

const testYAML = `
surfin:
  batch:
    job_name: ${TEST_JOB_NAME:NIGHTLY-SYNC}
  mongo:
    database: ${TEST_MONGO_DB}
  source:
    mode: file
  loader:
    chunk_size: 2
  datasets:
    - name: operational_routes
      collection: operationalRoutes
      business_key: SHIPMENT_VERSION_INSTANCE_ID
      indexes:
        - name: shipment_version_instance_id_1
          keys: [SHIPMENT_VERSION_INSTANCE_ID]
`

func TestLoadConfig_DefaultsYAMLAndEnv(t *testing.T) {
	t.Setenv("TEST_MONGO_DB", "etl")
	t.Setenv("SURFIN_MONGO_URI", "mongodb://db:27017")
	t.Setenv("SURFIN_LOADER_BATCH_SIZE", "250")
	t.Setenv("SURFIN_SECURITY_MASKED_PARAMETER_KEYS", "token, pwd")

	cfg, err := loadConfig("testdata/missing.env", EmbeddedConfig(testYAML), nil)
	require.NoError(t, err)

	s := cfg.Surfin
	assert.Equal(t, "NIGHTLY-SYNC", s.Batch.JobName)
	assert.Equal(t, "etl", s.Mongo.Database)
	assert.Equal(t, "mongodb://db:27017", s.Mongo.URI)
	assert.Equal(t, SourceModeFile, s.Source.Mode)
	assert.Equal(t, 2, s.Loader.ChunkSize)
	assert.Equal(t, 250, s.Loader.BatchSize)
	assert.Equal(t, "csvErrors", s.Loader.ErrorCollection)
	assert.Equal(t, []string{"token", "pwd"}, s.Security.MaskedParameterKeys)
	assert.Equal(t, 10*time.Second, s.Mongo.ConnectTimeout())
	require.Len(t, s.Datasets, 1)
	assert.Equal(t, []string{"SHIPMENT_VERSION_INSTANCE_ID"}, s.Datasets[0].Indexes[0].Keys)

	require.NoError(t, Validate(cfg))
}

func TestValidate(t *testing.T) {
	cfg := NewConfig()
	cfg.Surfin.Source.Endpoint = ""
	err := Validate(cfg)
	assert.True(t, exception.IsValidation(err), "api mode without endpoint")

	cfg = NewConfig()
	cfg.Surfin.Source.Mode = SourceModeFile
	cfg.Surfin.Loader.ChunkSize = 0
	assert.True(t, exception.IsValidation(Validate(cfg)))

	cfg = NewConfig()
	cfg.Surfin.Source.Mode = SourceModeStorage
	cfg.Surfin.Source.StorageRef = "datasets"
	assert.True(t, exception.IsValidation(Validate(cfg)))
	cfg.Surfin.Storage["datasets"] = map[string]interface{}{"type": "local"}
	assert.NoError(t, Validate(cfg))

	cfg = NewConfig()
	cfg.Surfin.Source.Mode = SourceModeFile
	cfg.Surfin.Infrastructure.JobRepository = "sql"
	assert.Error(t, Validate(cfg))
}

func TestEnvironmentExpander(t *testing.T) {
	t.Setenv("TEST_EXPANDER_SET", "value")
	out, err := NewOsEnvironmentExpander().Expand([]byte("a=${TEST_EXPANDER_SET} b=${TEST_EXPANDER_UNSET:fallback} c=${TEST_EXPANDER_UNSET}"))
	require.NoError(t, err)
	assert.Equal(t, "a=value b=fallback c=", string(out))
}

func TestApplyTimezone(t *testing.T) {
	original := time.Local
	t.Cleanup(func() { time.Local = original })

	require.NoError(t, ApplyTimezone("Asia/Tokyo"))
	assert.Equal(t, "Asia/Tokyo", time.Local.String())
	assert.True(t, exception.IsValidation(ApplyTimezone("Nowhere/Atlantis")))
}
