package decision

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/surfin-datasync/pkg/batch/core/application/port"
)

// Module provides the gate decision of the flow.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		func() *AllStepsCompletedDecision { return NewAllStepsCompletedDecision("allStepsCompleted") },
		fx.As(new(port.Decision)),
	)),
)
