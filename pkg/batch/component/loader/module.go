package loader

import (
	"go.uber.org/fx"

	"github.com/tigerroll/surfin-datasync/pkg/batch/adapter/mongodb"
	"github.com/tigerroll/surfin-datasync/pkg/batch/adapter/source"
	config "github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
	metrics "github.com/tigerroll/surfin-datasync/pkg/batch/core/metrics"
)

// NewMongoSinkProvider provides the MongoDB sink as a Sink.
func NewMongoSinkProvider(conn *mongodb.Connection, cfg *config.Config) Sink {
	return NewMongoSink(conn, cfg.Surfin.Loader)
}

// NewLoaderProvider provides the Loader.
func NewLoaderProvider(src source.DataSource, sink Sink, recorder metrics.MetricRecorder, tracer metrics.Tracer, cfg *config.Config) *Loader {
	return NewLoader(src, sink, recorder, tracer, cfg.Surfin.Loader)
}

// Module provides the dataset descriptors, the Sink and the Loader.
var Module = fx.Options(
	fx.Provide(DescriptorsFromConfig),
	fx.Provide(NewMongoSinkProvider),
	fx.Provide(NewLoaderProvider),
)
