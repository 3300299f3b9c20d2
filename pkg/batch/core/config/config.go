// Package config provides structures and utilities for managing application configuration.
package config

import "time"

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
	LogLevelFatal LogLevel = "FATAL"
)

// Job repository backends.
const (
	RepositoryMongo    = "mongo"
	RepositoryInMemory = "inmemory"
)

// Data source modes.
const (
	SourceModeFile    = "file"
	SourceModeAPI     = "api"
	SourceModeStorage = "storage"
)

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// MaskedParameterKeys is a list of keys in JobParameters whose values should be masked in logs.
	MaskedParameterKeys []string `yaml:"masked_parameter_keys"`
}

// BatchConfig holds configuration specific to the batch processing engine.
type BatchConfig struct {
	// JobName is the name the sync job is registered under.
	JobName string `yaml:"job_name" validate:"required"`
	// GateBefore is the step the completion gate runs in front of. Empty or unknown puts it last.
	GateBefore string `yaml:"gate_before"`
	// Schedule is an optional cron expression; empty means run once.
	Schedule string `yaml:"schedule"`
	// MetricsAsyncBufferSize is the buffer size for asynchronous metric recording.
	MetricsAsyncBufferSize int `yaml:"metrics_async_buffer_size" validate:"min=0"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC", "Asia/Tokyo").
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// InfrastructureConfig selects infrastructure backends.
type InfrastructureConfig struct {
	JobRepository string `yaml:"job_repository" validate:"oneof=mongo inmemory"`
}

// MongoConfig holds the MongoDB connection used for both metadata and business data.
type MongoConfig struct {
	URI                   string `yaml:"uri" validate:"required"`
	Database              string `yaml:"database" validate:"required"`
	ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds" validate:"min=0"`
}

// ConnectTimeout returns the connect timeout as a duration.
func (c MongoConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// SourceConfig configures where schemas and CSV files come from.
type SourceConfig struct {
	Mode     string `yaml:"mode" validate:"oneof=file api storage"`
	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"token"`
	Branch   string `yaml:"branch"`
	// DataDir holds the schema and CSV fixtures in file mode.
	DataDir string `yaml:"data_dir"`
	// RetryLimit is the number of attempts per remote request.
	RetryLimit int `yaml:"retry_limit" validate:"min=1"`
	// RequestsPerSecond paces attempts against the remote API.
	RequestsPerSecond      float64 `yaml:"requests_per_second" validate:"gt=0"`
	RequestTimeoutSeconds  int     `yaml:"request_timeout_seconds" validate:"min=0"`
	LogWhileWaiting        bool    `yaml:"log_while_waiting"`
	LogWaitIntervalSeconds int     `yaml:"log_wait_interval_seconds" validate:"min=0"`
	// StorageRef names an entry of Storage used in storage mode.
	StorageRef string `yaml:"storage_ref"`
	Bucket     string `yaml:"bucket"`
	Prefix     string `yaml:"prefix"`
}

// LoaderConfig holds load pipeline tunables.
type LoaderConfig struct {
	CSVDirectory              string `yaml:"csv_directory" validate:"required"`
	ChunkSize                 int    `yaml:"chunk_size" validate:"min=1"`
	BatchSize                 int    `yaml:"batch_size" validate:"min=1"`
	ErrorCollection           string `yaml:"error_collection" validate:"required"`
	CreationDetailsCollection string `yaml:"creation_details_collection" validate:"required"`
	// SkipHeaderRow drops the first CSV record when the export carries a header line.
	SkipHeaderRow bool `yaml:"skip_header_row"`
}

// MetricsConfig controls the Prometheus recorder and its HTTP endpoint.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"`
	Path          string `yaml:"path"`
}

// TracingConfig controls OpenTelemetry tracing. An empty endpoint disables export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// IndexConfig describes one index on a dataset collection.
type IndexConfig struct {
	Name   string   `yaml:"name" validate:"required"`
	Keys   []string `yaml:"keys" validate:"required,min=1"`
	Unique bool     `yaml:"unique"`
}

// DatasetConfig overrides one dataset of the load pipeline.
type DatasetConfig struct {
	Name        string        `yaml:"name" validate:"required"`
	Collection  string        `yaml:"collection" validate:"required"`
	RID         string        `yaml:"rid"`
	Path        string        `yaml:"path"`
	BusinessKey string        `yaml:"business_key" validate:"required"`
	SchemaFile  string        `yaml:"schema_file"`
	DataFile    string        `yaml:"data_file"`
	Indexes     []IndexConfig `yaml:"indexes" validate:"dive"`
}

// SurfinConfig holds all configuration under the "surfin" top-level key.
type SurfinConfig struct {
	Batch          BatchConfig          `yaml:"batch"`
	System         SystemConfig         `yaml:"system"`
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	Security       SecurityConfig       `yaml:"security"`
	Mongo          MongoConfig          `yaml:"mongo"`
	Source         SourceConfig         `yaml:"source"`
	Loader         LoaderConfig         `yaml:"loader"`
	Metrics        MetricsConfig        `yaml:"metrics"`
	Tracing        TracingConfig        `yaml:"tracing"`
	// Datasets replaces the built-in dataset table when non-empty.
	Datasets []DatasetConfig `yaml:"datasets" validate:"dive"`
	// Storage holds named object storage connections, decoded per provider type.
	Storage map[string]interface{} `yaml:"storage"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Surfin SurfinConfig `yaml:"surfin"`
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	return &Config{
		Surfin: SurfinConfig{
			Batch: BatchConfig{
				JobName:                "SYNC-DATASETS",
				GateBefore:             "global_bookings_truckinglegs",
				MetricsAsyncBufferSize: 100,
			},
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO", Format: "console"},
			},
			Infrastructure: InfrastructureConfig{
				JobRepository: RepositoryMongo,
			},
			Security: SecurityConfig{
				MaskedParameterKeys: []string{"password", "token", "secret"},
			},
			Mongo: MongoConfig{
				URI:                   "mongodb://localhost:27017",
				Database:              "datasync",
				ConnectTimeoutSeconds: 10,
			},
			Source: SourceConfig{
				Mode:                   SourceModeAPI,
				Branch:                 "master",
				DataDir:                "data",
				RetryLimit:             1,
				RequestsPerSecond:      1,
				RequestTimeoutSeconds:  600,
				LogWaitIntervalSeconds: 1,
			},
			Loader: LoaderConfig{
				CSVDirectory:              "./csv",
				ChunkSize:                 50000,
				BatchSize:                 1000,
				ErrorCollection:           "csvErrors",
				CreationDetailsCollection: "creationDetails",
			},
			Metrics: MetricsConfig{
				ListenAddress: ":9090",
				Path:          "/metrics",
			},
			Tracing: TracingConfig{
				ServiceName: "surfin-datasync",
			},
			Storage: map[string]interface{}{},
		},
	}
}
