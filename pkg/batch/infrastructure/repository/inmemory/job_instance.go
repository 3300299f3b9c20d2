package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/repository"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/support/jobkey"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
)

// CreateJobInstance stores a new instance for (jobName, params).
func (r *InMemoryJobRepository) CreateJobInstance(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error) {
	const op = "InMemoryJobRepository.CreateJobInstance"
	if jobName == "" {
		return nil, exception.NewValidationError(op, "job name cannot be empty")
	}
	key := jobkey.ComputeKey(params)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ji := range r.jobInstances {
		if ji.JobName == jobName && ji.JobKey == key {
			return nil, exception.NewDuplicateInstanceError(op,
				fmt.Sprintf("JobInstance for job '%s' with key %s already exists (ID: %d)", jobName, key, ji.ID), nil)
		}
	}

	instance := model.NewJobInstance(jobName, params)
	instance.ID = r.nextID(ctx, repository.SequenceJobInstance)
	instance.JobKey = key
	instance.Version = 1
	r.jobInstances[instance.ID] = *instance
	return instance, nil
}

// GetJobInstance finds the instance for jobName whose key matches params.
func (r *InMemoryJobRepository) GetJobInstance(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error) {
	key := jobkey.ComputeKey(params)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ji := range r.jobInstances {
		if ji.JobName == jobName && ji.JobKey == key {
			found := ji
			return &found, nil
		}
	}
	return nil, nil
}

// GetJobInstanceByID finds a JobInstance by its ID.
func (r *InMemoryJobRepository) GetJobInstanceByID(ctx context.Context, id int64) (*model.JobInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ji, ok := r.jobInstances[id]
	if !ok {
		return nil, nil
	}
	return &ji, nil
}

// GetJobInstanceForExecution finds the instance owning jobExecution.
func (r *InMemoryJobRepository) GetJobInstanceForExecution(ctx context.Context, jobExecution *model.JobExecution) (*model.JobInstance, error) {
	if jobExecution == nil {
		return nil, nil
	}
	r.mu.RLock()
	stored, ok := r.jobExecutions[jobExecution.ID]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetJobInstanceByID(ctx, stored.JobInstanceID)
}

// GetJobInstances returns instances of jobName, newest id first.
func (r *InMemoryJobRepository) GetJobInstances(ctx context.Context, jobName string, start, count int) ([]*model.JobInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matching []*model.JobInstance
	for _, ji := range r.jobInstances {
		if ji.JobName == jobName {
			found := ji
			matching = append(matching, &found)
		}
	}
	sort.Slice(matching, func(i, j int) bool { return matching[i].ID > matching[j].ID })
	return page(matching, start, count), nil
}

// FindJobInstancesByName behaves like GetJobInstances.
func (r *InMemoryJobRepository) FindJobInstancesByName(ctx context.Context, jobName string, start, count int) ([]*model.JobInstance, error) {
	return r.GetJobInstances(ctx, jobName, start, count)
}

// GetJobInstanceCount returns the count of JobInstances for a given job name.
func (r *InMemoryJobRepository) GetJobInstanceCount(ctx context.Context, jobName string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, ji := range r.jobInstances {
		if ji.JobName == jobName {
			count++
		}
	}
	return count, nil
}

// GetJobNames returns a sorted list of all distinct job names.
func (r *InMemoryJobRepository) GetJobNames(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	uniqueNames := make(map[string]struct{})
	for _, ji := range r.jobInstances {
		uniqueNames[ji.JobName] = struct{}{}
	}
	names := make([]string, 0, len(uniqueNames))
	for name := range uniqueNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func page[T any](items []T, start, count int) []T {
	if start < 0 {
		start = 0
	}
	if start >= len(items) {
		return []T{}
	}
	end := len(items)
	if count >= 0 && start+count < end {
		end = start + count
	}
	return items[start:end]
}
