package source

import (
	"fmt"
	"net/http"

	"go.uber.org/fx"

	storage "github.com/tigerroll/surfin-datasync/pkg/batch/adapter/storage"
	config "github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
	metrics "github.com/tigerroll/surfin-datasync/pkg/batch/core/metrics"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// NewDataSource selects the DataSource for the configured mode.
func NewDataSource(cfg *config.Config, resolver *storage.ConnectionResolver, recorder metrics.MetricRecorder) (DataSource, error) {
	sc := cfg.Surfin.Source
	switch sc.Mode {
	case config.SourceModeFile:
		logger.Infof("Data source: local files under [%s].", sc.DataDir)
		return NewFileSource(sc.DataDir), nil
	case config.SourceModeAPI, "":
		logger.Infof("Data source: remote API [%s], branch [%s].", sc.Endpoint, sc.Branch)
		return NewAPISource(sc, http.DefaultClient, recorder), nil
	case config.SourceModeStorage:
		if sc.StorageRef == "" {
			return nil, fmt.Errorf("source mode '%s' requires surfin.source.storage_ref", sc.Mode)
		}
		logger.Infof("Data source: object storage '%s' (bucket %q, prefix %q).", sc.StorageRef, sc.Bucket, sc.Prefix)
		return NewStorageSource(resolver, sc.StorageRef, sc.Bucket, sc.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown source mode '%s'", sc.Mode)
	}
}

// Module provides the DataSource selected by surfin.source.mode.
var Module = fx.Options(
	fx.Provide(NewDataSource),
)
