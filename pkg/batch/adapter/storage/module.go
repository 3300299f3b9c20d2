package storage

import (
	"context"

	"go.uber.org/fx"

	coreConfig "github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
)

// ResolverParams collects the providers contributed to the "storage_providers" group.
type ResolverParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    *coreConfig.Config
	Providers []StorageProvider `group:"storage_providers"`
}

// NewConnectionResolverProvider builds the resolver and closes all connections on stop.
func NewConnectionResolverProvider(p ResolverParams) *ConnectionResolver {
	r := NewConnectionResolver(p.Providers, p.Config)
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error { return r.CloseAll() },
	})
	return r
}

// Module provides the ConnectionResolver. Provider modules (local, gcs, minio) add to its group.
var Module = fx.Options(
	fx.Provide(NewConnectionResolverProvider),
)
