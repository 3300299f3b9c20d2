package mongodb

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// NewConnectionProvider connects on construction, pings on start and disconnects on stop.
func NewConnectionProvider(lc fx.Lifecycle, cfg *config.Config) (*Connection, error) {
	mongoCfg := cfg.Surfin.Mongo
	conn, err := Connect(context.Background(), mongoCfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := conn.Ping(ctx); err != nil {
				return err
			}
			logger.Infof("Connected to mongo database '%s'.", mongoCfg.Database)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return conn.Close(ctx)
		},
	})
	return conn, nil
}

// Module provides the shared *Connection.
var Module = fx.Options(
	fx.Provide(NewConnectionProvider),
)
