package loader_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/tigerroll/surfin-datasync/pkg/batch/adapter/source"
	"github.com/tigerroll/surfin-datasync/pkg/batch/component/loader"
	config "github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
)

// memorySink keeps collections in memory and notes whether the watched collection was
// ever observed empty between calls.
type memorySink struct {
	mu            sync.Mutex
	collections   map[string][]bson.D
	details       map[string]model.CreationDetail
	detailUpserts int
	indexes       map[string][]loader.IndexSpec
	watched       string
	sawEmpty      bool
	renameErr     error
}

func newMemorySink(watched string, existing int) *memorySink {
	s := &memorySink{
		collections: map[string][]bson.D{},
		details:     map[string]model.CreationDetail{},
		indexes:     map[string][]loader.IndexSpec{},
		watched:     watched,
	}
	for i := 0; i < existing; i++ {
		s.collections[watched] = append(s.collections[watched], bson.D{{Key: "OLD", Value: i}})
	}
	return s
}

func (s *memorySink) observe() {
	if len(s.collections[s.watched]) == 0 {
		s.sawEmpty = true
	}
}

func (s *memorySink) DropCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observe()
	delete(s.collections, name)
	delete(s.indexes, name)
	return nil
}

func (s *memorySink) InsertMany(ctx context.Context, collection string, docs []bson.D) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observe()
	s.collections[collection] = append(s.collections[collection], docs...)
	return len(docs), nil
}

func (s *memorySink) UpsertCreationDetails(ctx context.Context, details []model.CreationDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observe()
	for _, d := range details {
		key := d.Name + "|" + d.Value
		if existing, ok := s.details[key]; ok {
			d.Created = existing.Created
		}
		s.details[key] = d
		s.detailUpserts++
	}
	return nil
}

func (s *memorySink) CreateIndexes(ctx context.Context, collection string, indexes []loader.IndexSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observe()
	s.indexes[collection] = append(s.indexes[collection], indexes...)
	return nil
}

func (s *memorySink) Rename(ctx context.Context, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observe()
	if s.renameErr != nil {
		return s.renameErr
	}
	s.collections[to] = s.collections[from]
	s.indexes[to] = s.indexes[from]
	delete(s.collections, from)
	delete(s.indexes, from)
	s.observe()
	return nil
}

func field(doc bson.D, key string) (interface{}, bool) {
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

const haulageSchema = `{"foundrySchema":{"fieldSchemaList":[
	{"name":"FK_SHIPMENT_VERSION_IMP_EXP"},{"name":"DIRECTION"},{"name":"MODE"}]}}`

func haulageDescriptor(t *testing.T) loader.Descriptor {
	for _, d := range loader.DefaultDescriptors() {
		if d.Name == "haulage_info" {
			return d
		}
	}
	t.Fatal("haulage_info descriptor missing")
	return loader.Descriptor{}
}

func setup(t *testing.T, csvData string, chunkSize int) (*loader.Loader, *memorySink, loader.Descriptor, config.LoaderConfig) {
	t.Helper()
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "haulageInfoSchema.json"), []byte(haulageSchema), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "haulageInfo.csv"), []byte(csvData), 0o644))

	cfg := config.NewConfig().Surfin.Loader
	cfg.CSVDirectory = filepath.Join(t.TempDir(), "csv")
	cfg.ChunkSize = chunkSize

	d := haulageDescriptor(t)
	sink := newMemorySink(d.Collection, 5)
	return loader.NewLoader(source.NewFileSource(dataDir), sink, nil, nil, cfg), sink, d, cfg
}

func TestLoader_LoadsAndQuarantines(t *testing.T) {
	l, sink, d, cfg := setup(t, "S1,IMP,TRUCK\nS2,EXP,RAIL\nS3,IMP\nS1,EXP,BARGE\n", 2)

	res, err := l.Load(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, loader.Result{Dataset: "haulage_info", Inserted: 3, Quarantined: 1, Chunks: 2, CreationDetails: 3}, res)
	assert.Len(t, sink.collections["haulageInfo"], 3)
	assert.NotContains(t, sink.collections, "TMP-haulageInfo")
	assert.False(t, sink.sawEmpty, "production collection must never be observed empty")

	errs := sink.collections[cfg.ErrorCollection]
	require.Len(t, errs, 1)
	name, _ := field(errs[0], loader.FieldDataSetName)
	assert.Equal(t, "haulage_info", name)
	v, _ := field(errs[0], "DIRECTION")
	assert.Equal(t, "IMP", v)
	_, hasCreated := field(errs[0], loader.FieldCreated)
	assert.True(t, hasCreated)

	first := sink.collections["haulageInfo"][0]
	assert.Equal(t, "FK_SHIPMENT_VERSION_IMP_EXP", first[0].Key)
	assert.Equal(t, "S1", first[0].Value)
	_, hasCreated = field(first, loader.FieldCreated)
	assert.True(t, hasCreated)

	assert.Len(t, sink.details, 2)
	assert.Equal(t, 3, sink.detailUpserts)
	assert.Equal(t, []loader.IndexSpec{{Name: "fk_shipment_version_imp_exp_1_direction_1", Keys: []string{"FK_SHIPMENT_VERSION_IMP_EXP", "DIRECTION"}}},
		sink.indexes["haulageInfo"])

	_, statErr := os.Stat(l.FilePath(d))
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "local file is removed after the swap")
}

func TestLoader_OverflowFieldsGetUnknownHeaderKeys(t *testing.T) {
	l, sink, d, cfg := setup(t, "S4,IMP,TRUCK,EXTRA,MORE\n", 10)

	res, err := l.Load(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 0, res.Chunks)
	assert.Empty(t, sink.collections["haulageInfo"], "an empty load still swaps in an empty collection")

	errs := sink.collections[cfg.ErrorCollection]
	require.Len(t, errs, 1)
	v3, ok := field(errs[0], "UNKNOWN_HEADER_3")
	require.True(t, ok)
	assert.Equal(t, "EXTRA", v3)
	v4, _ := field(errs[0], "UNKNOWN_HEADER_4")
	assert.Equal(t, "MORE", v4)
}

func TestLoader_SkipHeaderRow(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "haulageInfoSchema.json"), []byte(haulageSchema), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "haulageInfo.csv"),
		[]byte("FK_SHIPMENT_VERSION_IMP_EXP,DIRECTION,MODE\nS1,IMP,TRUCK\n"), 0o644))

	cfg := config.NewConfig().Surfin.Loader
	cfg.CSVDirectory = t.TempDir()
	cfg.SkipHeaderRow = true
	d := haulageDescriptor(t)
	sink := newMemorySink(d.Collection, 1)

	res, err := loader.NewLoader(source.NewFileSource(dataDir), sink, nil, nil, cfg).Load(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
}

func TestLoader_FetchFailureLeavesProductionUntouched(t *testing.T) {
	l, sink, d, _ := setup(t, "S1,IMP,TRUCK\n", 2)
	d.Collection = "haulageInfo"
	d.DataFile = "missing.csv"

	_, err := l.Load(context.Background(), d)
	require.Error(t, err)
	assert.True(t, exception.IsFetch(err))
	assert.Len(t, sink.collections["haulageInfo"], 5)
	assert.False(t, sink.sawEmpty)
}

func TestLoader_SwapFailureKeepsStaging(t *testing.T) {
	l, sink, d, _ := setup(t, "S1,IMP,TRUCK\n", 2)
	sink.renameErr = exception.NewStoreUnavailableError("test", "rename failed", nil)

	_, err := l.Load(context.Background(), d)
	require.Error(t, err)
	assert.True(t, exception.IsStoreUnavailable(err))
	assert.Len(t, sink.collections["TMP-haulageInfo"], 1)
	assert.Len(t, sink.collections["haulageInfo"], 5)
	assert.FileExists(t, l.FilePath(d))
}

func TestLoadTasklet_WritesResultToContext(t *testing.T) {
	l, _, d, _ := setup(t, "S1,IMP,TRUCK\nS2,EXP\n", 1)
	je := &model.JobExecution{ID: 1, JobName: "SYNC-DATASETS"}
	se := model.NewStepExecution(d.Name, je)

	status, err := loader.NewLoadTasklet(d, l).Execute(context.Background(), se)
	require.NoError(t, err)
	assert.Equal(t, model.ExitCodeCompleted, status.ExitCode)

	inserted, _ := se.ExecutionContext.GetInt64(loader.ContextKeyInserted)
	quarantined, _ := se.ExecutionContext.GetInt64(loader.ContextKeyQuarantined)
	chunks, _ := se.ExecutionContext.GetInt64(loader.ContextKeyChunks)
	dataset, _ := se.ExecutionContext.GetString(loader.ContextKeyDataset)
	assert.Equal(t, int64(1), inserted)
	assert.Equal(t, int64(1), quarantined)
	assert.Equal(t, int64(1), chunks)
	assert.Equal(t, "haulage_info", dataset)
	assert.Equal(t, int64(2), se.ReadCount)
	assert.Equal(t, int64(1), se.WriteCount)
	assert.Equal(t, int64(1), se.ReadSkipCount)
	assert.NoError(t, loader.NewLoadTasklet(d, l).Close(context.Background()))
}

func TestLoadTasklet_FailureStillRecordsContext(t *testing.T) {
	l, _, d, _ := setup(t, "S1,IMP,TRUCK\n", 1)
	d.SchemaFile = "absent.json"
	se := model.NewStepExecution(d.Name, &model.JobExecution{ID: 1})

	status, err := loader.NewLoadTasklet(d, l).Execute(context.Background(), se)
	require.Error(t, err)
	assert.Equal(t, model.ExitCodeFailed, status.ExitCode)
	assert.True(t, se.ExecutionContext.ContainsKey(loader.ContextKeyInserted))
}

func TestDescriptors(t *testing.T) {
	cfg := config.NewConfig()
	ds, err := loader.DescriptorsFromConfig(cfg)
	require.NoError(t, err)
	require.Len(t, ds, 6)
	names := make([]string, 0, len(ds))
	for _, d := range ds {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"operational_routes", "equipment_cargo", "cargo_conditioning", "haulage_info",
		"haulage_equipment", "global_bookings_truckinglegs"}, names)
	assert.Equal(t, "haulageEquipmentsSchema.json", ds[4].SchemaFileName())
	assert.Equal(t, "TMP-truckingBookings", ds[5].StagingCollection())
	assert.True(t, ds[4].Indexes[0].Unique)

	cfg.Surfin.Datasets = []config.DatasetConfig{{
		Name: "custom", Collection: "customColl", BusinessKey: "ID",
		Indexes: []config.IndexConfig{{Name: "id_1", Keys: []string{"ID"}, Unique: true}},
	}}
	ds, err = loader.DescriptorsFromConfig(cfg)
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "customColl.csv", ds[0].DataFileName())
	assert.Equal(t, []loader.IndexSpec{{Name: "id_1", Keys: []string{"ID"}, Unique: true}}, ds[0].Indexes)

	cfg.Surfin.Datasets = append(cfg.Surfin.Datasets, cfg.Surfin.Datasets[0])
	_, err = loader.DescriptorsFromConfig(cfg)
	assert.True(t, exception.IsValidation(err))

	cfg.Surfin.Datasets = []config.DatasetConfig{{Name: "nokey", Collection: "c"}}
	_, err = loader.DescriptorsFromConfig(cfg)
	assert.True(t, exception.IsValidation(err))
}
