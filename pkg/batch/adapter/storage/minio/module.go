package minio

import "go.uber.org/fx"

// Module contributes the minio provider to the "storage_providers" group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewMinioProvider,
		fx.ResultTags(`group:"storage_providers"`),
	)),
)
