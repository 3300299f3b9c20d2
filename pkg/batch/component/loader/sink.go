package loader

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tigerroll/surfin-datasync/pkg/batch/adapter/mongodb"
	config "github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// Sink is the document store the loader writes business data to.
type Sink interface {
	// DropCollection drops name if it exists.
	DropCollection(ctx context.Context, name string) error
	// InsertMany inserts docs into collection with unordered bulk writes and returns the inserted count.
	InsertMany(ctx context.Context, collection string, docs []bson.D) (int, error)
	// UpsertCreationDetails upserts details keyed on (name, value). created is only set on insert.
	UpsertCreationDetails(ctx context.Context, details []model.CreationDetail) error
	// CreateIndexes builds indexes on collection.
	CreateIndexes(ctx context.Context, collection string, indexes []IndexSpec) error
	// Rename renames from to to, replacing an existing to.
	Rename(ctx context.Context, from, to string) error
}

// MongoSink is the MongoDB Sink. Bulk writes are split into batches of batchSize.
type MongoSink struct {
	conn                      *mongodb.Connection
	batchSize                 int
	creationDetailsCollection string
}

// NewMongoSink creates a MongoSink.
func NewMongoSink(conn *mongodb.Connection, cfg config.LoaderConfig) *MongoSink {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &MongoSink{
		conn:                      conn,
		batchSize:                 batchSize,
		creationDetailsCollection: cfg.CreationDetailsCollection,
	}
}

// storeError classifies a driver error: connectivity problems are StoreUnavailable, the rest are plain batch errors.
func storeError(op, msg string, err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return exception.NewStoreUnavailableError(op, msg, err)
	}
	return exception.NewBatchError(op, msg, err, false, false)
}

// DropCollection drops name if it exists.
func (s *MongoSink) DropCollection(ctx context.Context, name string) error {
	const op = "MongoSink.DropCollection"

	exists, err := s.conn.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := s.conn.Collection(name).Drop(ctx); err != nil {
		return storeError(op, fmt.Sprintf("failed to drop collection '%s'", name), err)
	}
	logger.Debugf("Dropped collection [%s].", name)
	return nil
}

// InsertMany inserts docs in unordered batches.
func (s *MongoSink) InsertMany(ctx context.Context, collection string, docs []bson.D) (int, error) {
	const op = "MongoSink.InsertMany"

	coll := s.conn.Collection(collection)
	opts := options.InsertMany().SetOrdered(false)
	inserted := 0
	executions := 0
	for start := 0; start < len(docs); start += s.batchSize {
		end := min(start+s.batchSize, len(docs))
		batch := make([]interface{}, 0, end-start)
		for _, d := range docs[start:end] {
			batch = append(batch, d)
		}
		res, err := coll.InsertMany(ctx, batch, opts)
		if res != nil {
			inserted += len(res.InsertedIDs)
		}
		if err != nil {
			return inserted, storeError(op, fmt.Sprintf("bulk insert into '%s' failed", collection), err)
		}
		executions++
		logger.Debugf("%d bulk execution(s). Documents [processed, inserted] = <%d, %d>", executions, end, inserted)
	}
	return inserted, nil
}

// UpsertCreationDetails upserts details in unordered batches.
func (s *MongoSink) UpsertCreationDetails(ctx context.Context, details []model.CreationDetail) error {
	const op = "MongoSink.UpsertCreationDetails"

	coll := s.conn.Collection(s.creationDetailsCollection)
	opts := options.BulkWrite().SetOrdered(false)
	for start := 0; start < len(details); start += s.batchSize {
		end := min(start+s.batchSize, len(details))
		models := make([]mongo.WriteModel, 0, end-start)
		for _, d := range details[start:end] {
			models = append(models, mongo.NewUpdateOneModel().
				SetFilter(bson.D{{Key: "name", Value: d.Name}, {Key: "value", Value: d.Value}}).
				SetUpdate(bson.D{
					{Key: "$set", Value: bson.D{{Key: "lastUpdate", Value: d.LastUpdate}}},
					{Key: "$setOnInsert", Value: bson.D{
						{Key: "name", Value: d.Name},
						{Key: "value", Value: d.Value},
						{Key: "created", Value: d.Created},
					}},
				}).
				SetUpsert(true))
		}
		res, err := coll.BulkWrite(ctx, models, opts)
		if err != nil {
			return storeError(op, fmt.Sprintf("creation details upsert into '%s' failed", s.creationDetailsCollection), err)
		}
		logger.Debugf("Creation details [processed, modified, upserted] = <%d, %d, %d>", end, res.ModifiedCount, res.UpsertedCount)
	}
	return nil
}

// CreateIndexes builds ascending indexes in the background.
func (s *MongoSink) CreateIndexes(ctx context.Context, collection string, indexes []IndexSpec) error {
	const op = "MongoSink.CreateIndexes"

	if len(indexes) == 0 {
		return nil
	}
	models := make([]mongo.IndexModel, 0, len(indexes))
	for _, ix := range indexes {
		keys := bson.D{}
		for _, k := range ix.Keys {
			keys = append(keys, bson.E{Key: k, Value: 1})
		}
		opts := options.Index().SetName(ix.Name).SetBackground(true)
		if ix.Unique {
			opts.SetUnique(true)
		}
		models = append(models, mongo.IndexModel{Keys: keys, Options: opts})
	}
	names, err := s.conn.Collection(collection).Indexes().CreateMany(ctx, models)
	if err != nil {
		return storeError(op, fmt.Sprintf("failed to create indexes on '%s'", collection), err)
	}
	logger.Debugf("Created indexes %v on [%s].", names, collection)
	return nil
}

// Rename swaps from into to with dropTarget set.
func (s *MongoSink) Rename(ctx context.Context, from, to string) error {
	logger.Debugf("Renaming '%s' collection to '%s'", from, to)
	return s.conn.RenameCollection(ctx, from, to, true)
}

var _ Sink = (*MongoSink)(nil)
