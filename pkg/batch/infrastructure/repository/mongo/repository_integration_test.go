package mongo_test

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/surfin-datasync/pkg/batch/adapter/mongodb"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"

	mongorepo "github.com/tigerroll/surfin-datasync/pkg/batch/infrastructure/repository/mongo"
)

func newRepository(t *testing.T) (*mongorepo.MongoJobRepository, *mongodb.Connection) {
	t.Helper()
	conn := mongodb.NewTestConnection(t)
	repo := mongorepo.NewMongoJobRepository(conn)
	require.NoError(t, repo.EnsureIndexes(context.Background()))
	return repo, conn
}

func params(kv ...string) model.JobParameters {
	p := model.NewJobParameters()
	for i := 0; i+1 < len(kv); i += 2 {
		p.Put(kv[i], kv[i+1])
	}
	return p
}

func TestMongoSequence_ConcurrentNextID(t *testing.T) {
	_, conn := newRepository(t)
	seq := mongorepo.NewSequence(conn.Database())
	ctx := context.Background()
	const n = 50

	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := seq.NextID(ctx, "JobExecution")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		assert.Equal(t, int64(i+1), id)
	}
}

func TestMongoJobInstance_Duplicate(t *testing.T) {
	repo, _ := newRepository(t)
	ctx := context.Background()

	ji, err := repo.CreateJobInstance(ctx, "SYNC-DATASETS", params("run.id", "1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), ji.ID)

	_, err = repo.CreateJobInstance(ctx, "SYNC-DATASETS", params("run.id", "1"))
	assert.True(t, exception.IsDuplicateInstance(err))

	found, err := repo.GetJobInstance(ctx, "SYNC-DATASETS", params("run.id", "1"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "1", found.Parameters.Get("run.id"))

	count, err := repo.GetJobInstanceCount(ctx, "unknown")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMongoJobExecution_OptimisticLockAndSync(t *testing.T) {
	repo, _ := newRepository(t)
	ctx := context.Background()

	ji, err := repo.CreateJobInstance(ctx, "SYNC-DATASETS", params("run.id", "2"))
	require.NoError(t, err)
	je := model.NewJobExecution(ji, ji.Parameters)
	require.NoError(t, repo.SaveJobExecution(ctx, je))
	assert.Equal(t, 1, je.Version)

	other, err := repo.GetJobExecution(ctx, je.ID)
	require.NoError(t, err)

	other.Status = model.BatchStatusStopping
	require.NoError(t, repo.UpdateJobExecution(ctx, other))

	je.MarkAsStarted()
	err = repo.UpdateJobExecution(ctx, je)
	assert.True(t, exception.IsOptimisticLockingFailure(err))
	assert.Equal(t, 1, je.Version)

	require.NoError(t, repo.SynchronizeStatus(ctx, je))
	assert.Equal(t, model.BatchStatusStopping, je.Status)
	assert.Equal(t, 2, je.Version)
	require.NoError(t, repo.UpdateJobExecution(ctx, je))

	running, err := repo.FindRunningJobExecutions(ctx, "SYNC-DATASETS")
	require.NoError(t, err)
	assert.Len(t, running, 1)

	je.MarkAsCompleted()
	require.NoError(t, repo.UpdateJobExecution(ctx, je))
	running, err = repo.FindRunningJobExecutions(ctx, "SYNC-DATASETS")
	require.NoError(t, err)
	assert.Empty(t, running)

	last, err := repo.GetLastJobExecution(ctx, ji)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, last.Status)
}

func TestMongoStepExecutionAndContext(t *testing.T) {
	repo, _ := newRepository(t)
	ctx := context.Background()

	ji, err := repo.CreateJobInstance(ctx, "SYNC-DATASETS", params("run.id", "3"))
	require.NoError(t, err)
	je := model.NewJobExecution(ji, ji.Parameters)
	require.NoError(t, repo.SaveJobExecution(ctx, je))

	se := je.CreateStepExecution("haulage_info")
	require.NoError(t, repo.SaveStepExecution(ctx, se))
	se.WriteCount = 3
	se.MarkAsCompleted()
	require.NoError(t, repo.UpdateStepExecution(ctx, se))

	total, _ := new(big.Int).SetString("1000000000000000000000", 10)
	se.ExecutionContext.Put("loader.inserted", total)
	require.NoError(t, repo.SaveExecutionContexts(ctx, []*model.StepExecution{se}))

	ec, err := repo.GetStepExecutionContext(ctx, se)
	require.NoError(t, err)
	got, ok := ec["loader.inserted"].(*big.Int)
	require.True(t, ok)
	assert.Zero(t, total.Cmp(got))

	loaded, err := repo.GetJobExecution(ctx, je.ID)
	require.NoError(t, err)
	require.NoError(t, repo.AddStepExecutions(ctx, loaded))
	require.Len(t, loaded.StepExecutions, 1)
	assert.Equal(t, int64(3), loaded.StepExecutions[0].WriteCount)

	n, err := repo.CountStepExecutions(ctx, ji, "haulage_info")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
