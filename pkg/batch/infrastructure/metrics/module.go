package metrics

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	config "github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
	metrics "github.com/tigerroll/surfin-datasync/pkg/batch/core/metrics"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// NewMetricRecorderProvider returns the Prometheus recorder and starts its HTTP endpoint when
// metrics are enabled, and a no-op recorder otherwise.
func NewMetricRecorderProvider(lc fx.Lifecycle, cfg *config.Config) metrics.MetricRecorder {
	mc := cfg.Surfin.Metrics
	if !mc.Enabled {
		logger.Debugf("Metrics disabled; using NoOpMetricRecorder.")
		return metrics.NewNoOpMetricRecorder()
	}
	recorder := NewPrometheusRecorder()
	if mc.ListenAddress != "" {
		server := NewMetricsServer(mc, recorder.GetRegistry())
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error { return server.Start() },
			OnStop:  server.Stop,
		})
	}
	return recorder
}

// NewTracerProvider builds the OpenTelemetry SDK provider. Spans are exported over OTLP/HTTP
// when an endpoint is configured; without one they are created but not exported.
func NewTracerProvider(ctx context.Context, tc config.TracingConfig) (*sdktrace.TracerProvider, error) {
	serviceName := tc.ServiceName
	if serviceName == "" {
		serviceName = "surfin-datasync"
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	}
	if tc.Endpoint != "" {
		var exporterOpts []otlptracehttp.Option
		if strings.Contains(tc.Endpoint, "://") {
			exporterOpts = append(exporterOpts, otlptracehttp.WithEndpointURL(tc.Endpoint))
		} else {
			exporterOpts = append(exporterOpts, otlptracehttp.WithEndpoint(tc.Endpoint))
		}
		if tc.Insecure {
			exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, exporterOpts...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

// NewTracer returns the OpenTelemetry tracer when tracing is enabled, and a no-op tracer otherwise.
// The SDK provider is flushed and shut down when the application stops.
func NewTracer(lc fx.Lifecycle, cfg *config.Config) (metrics.Tracer, error) {
	tc := cfg.Surfin.Tracing
	if !tc.Enabled {
		logger.Debugf("Tracing disabled; using NoOpTracer.")
		return metrics.NewNoOpTracer(), nil
	}
	tp, err := NewTracerProvider(context.Background(), tc)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	logger.Infof("Tracing enabled (service: %s, endpoint: %q).", tc.ServiceName, tc.Endpoint)
	return NewOpenTelemetryTracer(tp), nil
}

// Module is an Fx module that provides the MetricRecorder and the Tracer.
var Module = fx.Options(
	fx.Provide(NewMetricRecorderProvider),
	fx.Provide(NewTracer),
)
