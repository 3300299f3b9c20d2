package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/repository"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
)

// Sequence hands out ids from counter documents in the Sequences collection.
type Sequence struct {
	collection *mongodriver.Collection
}

// NewSequence creates a Sequence backed by db.
func NewSequence(db *mongodriver.Database) *Sequence {
	return &Sequence{collection: db.Collection(CollectionSequences)}
}

// NextID increments counterName and returns the new value in one server-side operation.
// A missing counter is created; the first id is 1.
func (s *Sequence) NextID(ctx context.Context, counterName string) (int64, error) {
	const op = "Sequence.NextID"
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc sequenceDocument
	err := s.collection.FindOneAndUpdate(ctx,
		bson.D{{Key: fieldSequenceName, Value: counterName}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: fieldSequenceValue, Value: int64(1)}}}},
		opts,
	).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, exception.NewStoreUnavailableError(op, fmt.Sprintf("failed to increment sequence '%s'", counterName), err)
	}
	return doc.Value, nil
}

var _ repository.Sequence = (*Sequence)(nil)
