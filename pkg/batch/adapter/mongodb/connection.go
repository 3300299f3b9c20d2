// Package mongodb owns the MongoDB client shared by the job repository and the load pipeline.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// Connection is a connected client bound to one database.
type Connection struct {
	client *mongo.Client
	db     *mongo.Database
	cfg    config.MongoConfig
}

// Connect creates the client. The driver dials lazily; call Ping to verify the server is reachable.
func Connect(ctx context.Context, cfg config.MongoConfig) (*Connection, error) {
	const op = "mongodb.Connect"
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeoutSeconds > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout())
		opts.SetServerSelectionTimeout(cfg.ConnectTimeout())
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, exception.NewStoreUnavailableError(op, "failed to create mongo client", err)
	}
	return &Connection{
		client: client,
		db:     client.Database(cfg.Database),
		cfg:    cfg,
	}, nil
}

// NewConnection wraps an existing client, mainly for tests.
func NewConnection(client *mongo.Client, database string) *Connection {
	return &Connection{client: client, db: client.Database(database), cfg: config.MongoConfig{Database: database}}
}

// Client returns the underlying driver client.
func (c *Connection) Client() *mongo.Client { return c.client }

// Database returns the configured database.
func (c *Connection) Database() *mongo.Database { return c.db }

// Collection returns a handle to name in the configured database.
func (c *Connection) Collection(name string) *mongo.Collection { return c.db.Collection(name) }

// Ping checks that the primary is reachable.
func (c *Connection) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx, nil); err != nil {
		return exception.NewStoreUnavailableError("mongodb.Ping", fmt.Sprintf("mongo database '%s' is not reachable", c.db.Name()), err)
	}
	return nil
}

// Close disconnects the client.
func (c *Connection) Close(ctx context.Context) error {
	logger.Debugf("Disconnecting mongo client (database '%s').", c.db.Name())
	return c.client.Disconnect(ctx)
}

// CollectionExists reports whether name exists in the configured database.
func (c *Connection) CollectionExists(ctx context.Context, name string) (bool, error) {
	names, err := c.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return false, exception.NewStoreUnavailableError("mongodb.CollectionExists", "failed to list collections", err)
	}
	return len(names) > 0, nil
}

// RenameCollection renames from to to within the configured database using the admin command.
// With dropTarget an existing target is replaced in the same server-side operation.
func (c *Connection) RenameCollection(ctx context.Context, from, to string, dropTarget bool) error {
	cmd := bson.D{
		{Key: "renameCollection", Value: c.db.Name() + "." + from},
		{Key: "to", Value: c.db.Name() + "." + to},
		{Key: "dropTarget", Value: dropTarget},
	}
	if err := c.client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return exception.NewStoreUnavailableError("mongodb.RenameCollection",
			fmt.Sprintf("failed to rename collection '%s' to '%s'", from, to), err)
	}
	return nil
}
