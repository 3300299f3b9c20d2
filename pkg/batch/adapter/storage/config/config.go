// Package config holds the per-connection settings of the storage providers.
package config

import (
	"fmt"

	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/configbinder"
)

// StorageConfig holds configuration for a single storage connection.
// Only the fields relevant to Type are read by its provider.
type StorageConfig struct {
	Type            string `yaml:"type"`             // "local", "gcs" or "minio".
	BucketName      string `yaml:"bucket_name"`      // Default bucket name for operations.
	CredentialsFile string `yaml:"credentials_file"` // Service account key for GCS.
	BaseDir         string `yaml:"base_dir"`         // Base directory for local file system operations.
	Endpoint        string `yaml:"endpoint"`         // host:port for minio, API endpoint override for GCS.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Region          string `yaml:"region"`
	UseSSL          bool   `yaml:"use_ssl"`
	// Anonymous disables authentication (GCS emulators, public buckets).
	Anonymous bool `yaml:"anonymous"`
}

// DatasourcesConfig holds a map of named storage configurations.
type DatasourcesConfig map[string]StorageConfig

// Lookup decodes the entry name of the raw "storage" configuration section.
func Lookup(raw map[string]interface{}, name string) (StorageConfig, error) {
	var sc StorageConfig
	entry, ok := raw[name]
	if !ok {
		return sc, fmt.Errorf("storage configuration for name '%s' not found", name)
	}
	props, ok := entry.(map[string]interface{})
	if !ok {
		return sc, fmt.Errorf("invalid storage configuration for '%s': expected a mapping, got %T", name, entry)
	}
	if err := configbinder.BindProperties(props, &sc); err != nil {
		return sc, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}
	if sc.Type == "" {
		return sc, fmt.Errorf("storage configuration '%s' has no type", name)
	}
	return sc, nil
}
