package usecase

import (
	"go.uber.org/fx"
)

// Module is the Fx module for JobLauncher and JobExplorer.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewSimpleJobExplorer,
		fx.As(new(JobExplorer)),
	)),
	fx.Provide(fx.Annotate(
		NewSimpleJobLauncher,
		fx.As(new(JobLauncher)),
	)),
)
