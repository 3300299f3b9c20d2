// Package mongo implements the job repository on MongoDB, one collection per entity.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tigerroll/surfin-datasync/pkg/batch/adapter/mongodb"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/repository"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// MongoJobRepository implements the repository.JobRepository interface.
type MongoJobRepository struct {
	db       *mongodriver.Database
	sequence repository.Sequence
}

// NewMongoJobRepository creates a repository on the connection's database.
func NewMongoJobRepository(conn *mongodb.Connection) *MongoJobRepository {
	return &MongoJobRepository{
		db:       conn.Database(),
		sequence: NewSequence(conn.Database()),
	}
}

func (r *MongoJobRepository) collection(name string) *mongodriver.Collection {
	return r.db.Collection(name)
}

// EnsureIndexes creates the indexes the repository relies on. Existing indexes are left alone.
func (r *MongoJobRepository) EnsureIndexes(ctx context.Context) error {
	const op = "MongoJobRepository.EnsureIndexes"
	indexes := map[string][]mongodriver.IndexModel{
		CollectionJobInstance: {{
			Keys:    bson.D{{Key: fieldJobName, Value: 1}, {Key: fieldJobKey, Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		CollectionJobExecution: {{
			Keys: bson.D{{Key: fieldJobExecutionID, Value: 1}, {Key: fieldJobInstanceID, Value: 1}},
		}},
		CollectionStepExecution: {{
			Keys: bson.D{{Key: fieldStepExecutionID, Value: 1}, {Key: fieldJobExecutionID, Value: 1}},
		}},
		CollectionExecutionContext: {{
			Keys: bson.D{{Key: fieldStepExecutionID, Value: 1}, {Key: fieldJobExecutionID, Value: 1}},
		}},
		CollectionSequences: {{
			Keys:    bson.D{{Key: fieldSequenceName, Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
	}
	for name, models := range indexes {
		if _, err := r.collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return exception.NewStoreUnavailableError(op, fmt.Sprintf("failed to create indexes on '%s'", name), err)
		}
		logger.Debugf("%s: indexes ensured on '%s'.", op, name)
	}
	return nil
}

// nextID allocates an id from the named sequence.
func (r *MongoJobRepository) nextID(ctx context.Context, name string) (int64, error) {
	return r.sequence.NextID(ctx, name)
}

// Close is a no-op; the connection is owned by the mongodb adapter.
func (r *MongoJobRepository) Close() error {
	return nil
}

func storeError(op, message string, err error) error {
	return exception.NewStoreUnavailableError(op, message, err)
}

var _ repository.JobRepository = (*MongoJobRepository)(nil)
