package mongo

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/surfin-datasync/pkg/batch/adapter/mongodb"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/repository"
)

// NewMongoJobRepositoryProvider creates the repository and ensures its indexes on start.
func NewMongoJobRepositoryProvider(lc fx.Lifecycle, conn *mongodb.Connection) repository.JobRepository {
	repo := NewMongoJobRepository(conn)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return repo.EnsureIndexes(ctx)
		},
	})
	return repo
}

// Module is an Fx module that provides MongoJobRepository as a repository.JobRepository interface.
var Module = fx.Options(
	fx.Provide(NewMongoJobRepositoryProvider),
)
