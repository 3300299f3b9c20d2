package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/tigerroll/surfin-datasync/pkg/batch/adapter/source"
	"github.com/tigerroll/surfin-datasync/pkg/batch/component/loader"
	port "github.com/tigerroll/surfin-datasync/pkg/batch/core/application/port"
	usecase "github.com/tigerroll/surfin-datasync/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
	support "github.com/tigerroll/surfin-datasync/pkg/batch/core/config/support"
	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/job/decision"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/job/runner"
	"github.com/tigerroll/surfin-datasync/pkg/batch/infrastructure/repository/inmemory"
	batchlistener "github.com/tigerroll/surfin-datasync/pkg/batch/listener"
)

const twoColumnSchema = `{"foundrySchema":{"fieldSchemaList":[{"name":"KEY"},{"name":"VALUE"}]}}`

type collectionSink struct {
	mu          sync.Mutex
	collections map[string][]bson.D
}

func newCollectionSink() *collectionSink {
	return &collectionSink{collections: map[string][]bson.D{}}
}

func (s *collectionSink) DropCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

func (s *collectionSink) InsertMany(ctx context.Context, collection string, docs []bson.D) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = append(s.collections[collection], docs...)
	return len(docs), nil
}

func (s *collectionSink) UpsertCreationDetails(ctx context.Context, details []model.CreationDetail) error {
	return nil
}

func (s *collectionSink) CreateIndexes(ctx context.Context, collection string, indexes []loader.IndexSpec) error {
	return nil
}

func (s *collectionSink) Rename(ctx context.Context, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[to] = s.collections[from]
	delete(s.collections, from)
	return nil
}

func (s *collectionSink) count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[collection])
}

type syncFixture struct {
	cfg     *config.Config
	dataDir string
	sink    *collectionSink
	repo    *inmemory.InMemoryJobRepository
	runner  *Runner
}

// newSyncFixture wires the sync job over file sources for the datasets a, b and c.
// Only the datasets named in present get files.
func newSyncFixture(t *testing.T, gateBefore string, present ...string) *syncFixture {
	t.Helper()
	f := &syncFixture{
		cfg:     config.NewConfig(),
		dataDir: t.TempDir(),
		sink:    newCollectionSink(),
		repo:    inmemory.NewInMemoryJobRepository(),
	}
	f.cfg.Surfin.Batch.GateBefore = gateBefore
	f.cfg.Surfin.Loader.CSVDirectory = filepath.Join(t.TempDir(), "csv")

	for _, name := range present {
		require.NoError(t, os.WriteFile(filepath.Join(f.dataDir, name+"Schema.json"), []byte(twoColumnSchema), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(f.dataDir, name+".csv"), []byte("k1,v1\nk2,v2\n"), 0o644))
	}

	var descriptors []loader.Descriptor
	for _, name := range []string{"a", "b", "c"} {
		descriptors = append(descriptors, loader.Descriptor{
			Dataset:     source.Dataset{Name: name, Collection: name},
			BusinessKey: "KEY",
		})
	}

	p := SyncJobParams{
		Config:        f.cfg,
		Descriptors:   descriptors,
		Loader:        loader.NewLoader(source.NewFileSource(f.dataDir), f.sink, nil, nil, f.cfg.Surfin.Loader),
		JobRepository: f.repo,
		Gate:          decision.NewAllStepsCompletedDecision("allStepsCompleted"),
		StepListeners: []port.StepExecutionListener{batchlistener.NewStepStatusListener()},
	}
	factory := support.NewJobFactory(support.JobFactoryParams{
		Registrations: []support.JobRegistration{NewSyncJobRegistration(p)},
	})
	launcher := usecase.NewSimpleJobLauncher(f.repo, factory, runner.NewSimpleJobRunner(f.repo))
	f.runner = NewRunner(launcher, f.cfg)
	return f
}

func TestNewSyncJob_StepsFollowDescriptorOrder(t *testing.T) {
	cfg := config.NewConfig()
	descriptors := loader.DefaultDescriptors()
	job := NewSyncJob(SyncJobParams{
		Config:        cfg,
		Descriptors:   descriptors,
		Loader:        loader.NewLoader(nil, nil, nil, nil, cfg.Surfin.Loader),
		JobRepository: inmemory.NewInMemoryJobRepository(),
		Gate:          decision.NewAllStepsCompletedDecision("allStepsCompleted"),
	})

	assert.Equal(t, "SYNC-DATASETS", job.JobName())
	require.Len(t, job.StepNames(), len(descriptors))
	for i, d := range descriptors {
		assert.Equal(t, d.Name, job.StepNames()[i])
	}
}

func TestSyncJob_AllDatasetsLoaded(t *testing.T) {
	f := newSyncFixture(t, "c", "a", "b", "c")

	je, err := f.runner.RunOnce(context.Background(), 100)
	require.NoError(t, err)
	require.NotNil(t, je)

	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	require.Len(t, je.StepExecutions, 3)
	for _, name := range []string{"a", "b", "c"} {
		assert.Equal(t, 2, f.sink.count(name), name)
		assert.Zero(t, f.sink.count("TMP-"+name), name)
	}

	inserted, ok := je.StepExecutions[0].ExecutionContext.GetInt64(loader.ContextKeyInserted)
	require.True(t, ok)
	assert.Equal(t, int64(2), inserted)
	assert.Equal(t, int64(2), je.StepExecutions[0].WriteCount)

	assert.NoDirExists(t, f.cfg.Surfin.Loader.CSVDirectory)
}

func TestSyncJob_FailedStepBeforeGateFailsJob(t *testing.T) {
	f := newSyncFixture(t, "c", "a", "c")

	je, err := f.runner.RunOnce(context.Background(), 101)
	require.Error(t, err)
	require.NotNil(t, je)

	assert.Equal(t, model.BatchStatusFailed, je.Status)
	assert.Equal(t, model.ExitCodeFailed, je.ExitStatus.ExitCode)
	assert.Contains(t, je.ExitStatus.ExitDescription, "Steps not completed: b")

	// b failed, a was still loaded, and c never ran because the gate stopped the job.
	require.Len(t, je.StepExecutions, 2)
	assert.Equal(t, model.BatchStatusCompleted, je.StepExecutions[0].Status)
	assert.Equal(t, model.BatchStatusFailed, je.StepExecutions[1].Status)
	assert.Equal(t, 2, f.sink.count("a"))
	assert.Zero(t, f.sink.count("c"))

	stored, err := f.repo.GetJobExecution(context.Background(), je.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusFailed, stored.Status)
}

func TestSyncJob_FailedLastStepAfterGateStillCompletes(t *testing.T) {
	f := newSyncFixture(t, "c", "a", "b")

	je, err := f.runner.RunOnce(context.Background(), 102)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	require.Len(t, je.StepExecutions, 3)
	assert.Equal(t, model.BatchStatusFailed, je.StepExecutions[2].Status)
}

func TestSyncJob_SameRunIDIsRefused(t *testing.T) {
	f := newSyncFixture(t, "c", "a", "b", "c")

	_, err := f.runner.RunOnce(context.Background(), 200)
	require.NoError(t, err)

	_, err = f.runner.RunOnce(context.Background(), 200)
	require.Error(t, err)
}
