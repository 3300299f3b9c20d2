package listener

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/surfin-datasync/pkg/batch/core/application/port"
	"github.com/tigerroll/surfin-datasync/pkg/batch/listener/logging"
	"github.com/tigerroll/surfin-datasync/pkg/batch/listener/metrics"
	"github.com/tigerroll/surfin-datasync/pkg/batch/listener/notification"
	"github.com/tigerroll/surfin-datasync/pkg/batch/listener/tracing"
)

// Module aggregates all listener modules of the batch framework.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewStepStatusListener,
		fx.As(new(port.StepExecutionListener)),
		fx.ResultTags(`group:"stepListeners"`),
	)),
	logging.Module,
	metrics.Module,
	tracing.Module,
	notification.Module,
)
