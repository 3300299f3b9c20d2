package inmemory_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfin-datasync/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
)

func newParams(kv ...string) model.JobParameters {
	p := model.NewJobParameters()
	for i := 0; i+1 < len(kv); i += 2 {
		p.Put(kv[i], kv[i+1])
	}
	return p
}

func savedExecution(t *testing.T, repo *inmemory.InMemoryJobRepository, jobName string) *model.JobExecution {
	t.Helper()
	ctx := context.Background()
	ji, err := repo.CreateJobInstance(ctx, jobName, newParams("run.id", jobName))
	require.NoError(t, err)
	je := model.NewJobExecution(ji, ji.Parameters)
	require.NoError(t, repo.SaveJobExecution(ctx, je))
	return je
}

func TestCreateJobInstance_Duplicate(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewInMemoryJobRepository()

	first, err := repo.CreateJobInstance(ctx, "loadJob", newParams("a", "1", "b", "2"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, 1, first.Version)
	assert.Len(t, first.JobKey, 32)

	_, err = repo.CreateJobInstance(ctx, "loadJob", newParams("b", "2", "a", "1"))
	assert.True(t, exception.IsDuplicateInstance(err))

	other, err := repo.CreateJobInstance(ctx, "otherJob", newParams("a", "1", "b", "2"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), other.ID)

	found, err := repo.GetJobInstance(ctx, "loadJob", newParams("a", "1", "b", "2"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	missing, err := repo.GetJobInstance(ctx, "loadJob", newParams("a", "9"))
	require.NoError(t, err)
	assert.Nil(t, missing)

	names, err := repo.GetJobNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"loadJob", "otherJob"}, names)
}

func TestGetJobInstances_Paginated(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewInMemoryJobRepository()
	for _, v := range []string{"1", "2", "3", "4"} {
		_, err := repo.CreateJobInstance(ctx, "loadJob", newParams("run.id", v))
		require.NoError(t, err)
	}

	got, err := repo.GetJobInstances(ctx, "loadJob", 1, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)

	got, err = repo.GetJobInstances(ctx, "loadJob", 10, 2)
	require.NoError(t, err)
	assert.Empty(t, got)

	count, err := repo.GetJobInstanceCount(ctx, "loadJob")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	count, err = repo.GetJobInstanceCount(ctx, "nothing")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUpdateJobExecution_OptimisticLock(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewInMemoryJobRepository()
	je := savedExecution(t, repo, "loadJob")
	assert.Equal(t, 1, je.Version)

	stale, err := repo.GetJobExecution(ctx, je.ID)
	require.NoError(t, err)

	je.MarkAsStarted()
	require.NoError(t, repo.UpdateJobExecution(ctx, je))
	assert.Equal(t, 2, je.Version)

	stale.MarkAsCompleted()
	err = repo.UpdateJobExecution(ctx, stale)
	assert.True(t, exception.IsOptimisticLockingFailure(err))
	assert.Equal(t, 1, stale.Version)

	stored, err := repo.GetJobExecution(ctx, je.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusStarted, stored.Status)
	assert.Equal(t, 2, stored.Version)
}

func TestUpdateJobExecution_Validation(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewInMemoryJobRepository()

	err := repo.UpdateJobExecution(ctx, nil)
	assert.True(t, exception.IsValidation(err))

	je := savedExecution(t, repo, "loadJob")
	je.ID = 99
	err = repo.UpdateJobExecution(ctx, je)
	assert.True(t, exception.IsNotFound(err))
}

func TestSynchronizeStatus(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewInMemoryJobRepository()
	je := savedExecution(t, repo, "loadJob")

	external, err := repo.GetJobExecution(ctx, je.ID)
	require.NoError(t, err)
	external.Status = model.BatchStatusStopping
	require.NoError(t, repo.UpdateJobExecution(ctx, external))

	je.Status = model.BatchStatusStarted
	require.NoError(t, repo.SynchronizeStatus(ctx, je))
	assert.Equal(t, model.BatchStatusStopping, je.Status)
	assert.Equal(t, 2, je.Version)

	// Same version: nothing changes.
	je.Status = model.BatchStatusFailed
	require.NoError(t, repo.SynchronizeStatus(ctx, je))
	assert.Equal(t, model.BatchStatusFailed, je.Status)
}

func TestSynchronizeStatus_CreatesMissingRow(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewInMemoryJobRepository()
	ji, err := repo.CreateJobInstance(ctx, "loadJob", newParams("x", "1"))
	require.NoError(t, err)

	je := model.NewJobExecution(ji, ji.Parameters)
	je.ID = 42
	je.Version = 3
	require.NoError(t, repo.SynchronizeStatus(ctx, je))

	stored, err := repo.GetJobExecution(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 3, stored.Version)
	assert.Equal(t, 3, je.Version)
}

func TestFindRunningAndLastJobExecution(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewInMemoryJobRepository()
	je := savedExecution(t, repo, "loadJob")

	running, err := repo.FindRunningJobExecutions(ctx, "loadJob")
	require.NoError(t, err)
	require.Len(t, running, 1)

	je.MarkAsCompleted()
	require.NoError(t, repo.UpdateJobExecution(ctx, je))

	running, err = repo.FindRunningJobExecutions(ctx, "loadJob")
	require.NoError(t, err)
	assert.Empty(t, running)

	ji, err := repo.GetJobInstanceForExecution(ctx, je)
	require.NoError(t, err)
	last, err := repo.GetLastJobExecution(ctx, ji)
	require.NoError(t, err)
	assert.Equal(t, je.ID, last.ID)
	assert.Equal(t, model.BatchStatusCompleted, last.Status)
}

func TestStepExecutionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewInMemoryJobRepository()
	je := savedExecution(t, repo, "loadJob")

	first := je.CreateStepExecution("loadA")
	second := je.CreateStepExecution("loadB")
	require.NoError(t, repo.SaveStepExecutions(ctx, []*model.StepExecution{first, second}))
	assert.Equal(t, je.ID, first.JobExecutionID)

	first.WriteCount = 10
	first.MarkAsCompleted()
	require.NoError(t, repo.UpdateStepExecution(ctx, first))
	assert.Equal(t, 2, first.Version)

	first.Version = 1
	assert.True(t, exception.IsOptimisticLockingFailure(repo.UpdateStepExecution(ctx, first)))

	got, err := repo.GetStepExecution(ctx, je, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.WriteCount)

	loaded, err := repo.GetJobExecution(ctx, je.ID)
	require.NoError(t, err)
	require.NoError(t, repo.AddStepExecutions(ctx, loaded))
	require.Len(t, loaded.StepExecutions, 2)
	assert.Equal(t, "loadA", loaded.StepExecutions[0].StepName)

	ji, err := repo.GetJobInstanceByID(ctx, je.JobInstanceID)
	require.NoError(t, err)
	n, err := repo.CountStepExecutions(ctx, ji, "loadB")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.True(t, exception.IsValidation(repo.SaveStepExecutions(ctx, nil)))
}

func TestExecutionContexts(t *testing.T) {
	ctx := context.Background()
	repo := inmemory.NewInMemoryJobRepository()
	je := savedExecution(t, repo, "loadJob")
	se := je.CreateStepExecution("loadA")
	require.NoError(t, repo.SaveStepExecution(ctx, se))

	ec, err := repo.GetStepExecutionContext(ctx, se)
	require.NoError(t, err)
	assert.Empty(t, ec)

	se.ExecutionContext.Put("file.name", "a.csv")
	je.ExecutionContext.Put("count", 3)
	require.NoError(t, repo.SaveExecutionContexts(ctx, []*model.StepExecution{se}))

	se.ExecutionContext.Put("file.name", "changed.csv")
	ec, err = repo.GetStepExecutionContext(ctx, se)
	require.NoError(t, err)
	assert.Equal(t, "a.csv", ec["file.name"])

	jec, err := repo.GetJobExecutionContext(ctx, je)
	require.NoError(t, err)
	assert.Equal(t, 3, jec["count"])
}

func TestSequence_ConcurrentNextID(t *testing.T) {
	ctx := context.Background()
	seq := inmemory.NewSequence()
	const n = 200

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

	other, err := seq.NextID(ctx, "StepExecution")
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)
}
