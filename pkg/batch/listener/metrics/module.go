package metrics

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/surfin-datasync/pkg/batch/core/application/port"
)

// Module decorates the MetricRecorder provided by infrastructure/metrics so that recording is
// asynchronous, and contributes the step metrics listener.
var Module = fx.Options(
	fx.Decorate(NewAsyncMetricRecorderWrapper),
	fx.Provide(fx.Annotate(
		NewMetricsStepListener,
		fx.As(new(port.StepExecutionListener)),
		fx.ResultTags(`group:"stepListeners"`),
	)),
)
