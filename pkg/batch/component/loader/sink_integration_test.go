package loader_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/tigerroll/surfin-datasync/pkg/batch/adapter/mongodb"
	"github.com/tigerroll/surfin-datasync/pkg/batch/adapter/source"
	"github.com/tigerroll/surfin-datasync/pkg/batch/component/loader"
	config "github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
)

func TestMongoSink_LoadAndSwap(t *testing.T) {
	conn := mongodb.NewTestConnection(t)
	ctx := context.Background()

	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "haulageInfoSchema.json"), []byte(haulageSchema), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "haulageInfo.csv"),
		[]byte("S1,IMP,TRUCK\nS2,EXP,RAIL\nS3,IMP\nS1,EXP,BARGE\n"), 0o644))

	cfg := config.NewConfig().Surfin.Loader
	cfg.CSVDirectory = t.TempDir()
	cfg.ChunkSize = 2
	cfg.BatchSize = 1

	_, err := conn.Collection("haulageInfo").InsertOne(ctx, bson.D{{Key: "OLD", Value: true}})
	require.NoError(t, err)

	d := haulageDescriptor(t)
	l := loader.NewLoader(source.NewFileSource(dataDir), loader.NewMongoSink(conn, cfg), nil, nil, cfg)
	res, err := l.Load(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Inserted)

	n, err := conn.Collection("haulageInfo").CountDocuments(ctx, bson.D{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	exists, err := conn.CollectionExists(ctx, d.StagingCollection())
	require.NoError(t, err)
	assert.False(t, exists)

	n, err = conn.Collection(cfg.ErrorCollection).CountDocuments(ctx, bson.D{{Key: loader.FieldDataSetName, Value: "haulage_info"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	specs, err := conn.Collection("haulageInfo").Indexes().ListSpecifications(ctx)
	require.NoError(t, err)
	var indexNames []string
	for _, s := range specs {
		indexNames = append(indexNames, s.Name)
	}
	assert.Contains(t, indexNames, "fk_shipment_version_imp_exp_1_direction_1")

	n, err = conn.Collection(cfg.CreationDetailsCollection).CountDocuments(ctx, bson.D{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMongoSink_CreationDetailsKeepFirstCreated(t *testing.T) {
	conn := mongodb.NewTestConnection(t)
	ctx := context.Background()
	cfg := config.NewConfig().Surfin.Loader
	sink := loader.NewMongoSink(conn, cfg)

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)
	require.NoError(t, sink.UpsertCreationDetails(ctx, []model.CreationDetail{
		{Name: "BOOKING_NUMBER", Value: "B1", Created: first, LastUpdate: first},
	}))
	require.NoError(t, sink.UpsertCreationDetails(ctx, []model.CreationDetail{
		{Name: "BOOKING_NUMBER", Value: "B1", Created: later, LastUpdate: later},
	}))

	var got model.CreationDetail
	require.NoError(t, conn.Collection(cfg.CreationDetailsCollection).
		FindOne(ctx, bson.D{{Key: "name", Value: "BOOKING_NUMBER"}, {Key: "value", Value: "B1"}}).Decode(&got))
	assert.True(t, got.Created.Equal(first))
	assert.True(t, got.LastUpdate.Equal(later))

	require.NoError(t, sink.DropCollection(ctx, "does-not-exist"))
}
