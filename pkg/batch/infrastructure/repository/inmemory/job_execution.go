package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/repository"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
)

// storedJobExecution strips the parts of je that are not part of the JobExecution row.
func storedJobExecution(je *model.JobExecution) model.JobExecution {
	row := *je
	row.StepExecutions = nil
	row.ExecutionContext = nil
	row.Failures = nil
	return row
}

func loadedJobExecution(row model.JobExecution) *model.JobExecution {
	je := row
	je.StepExecutions = make([]*model.StepExecution, 0)
	je.ExecutionContext = model.NewExecutionContext()
	return &je
}

// SaveJobExecution persists a new JobExecution.
func (r *InMemoryJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	const op = "InMemoryJobRepository.SaveJobExecution"
	if err := repository.ValidateJobExecutionForSave(op, jobExecution); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	jobExecution.ID = r.nextID(ctx, repository.SequenceJobExecution)
	jobExecution.Version = 1
	r.jobExecutions[jobExecution.ID] = storedJobExecution(jobExecution)
	for _, se := range jobExecution.StepExecutions {
		se.JobExecutionID = jobExecution.ID
	}
	return nil
}

// UpdateJobExecution updates an existing JobExecution if its version is current.
func (r *InMemoryJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	const op = "InMemoryJobRepository.UpdateJobExecution"
	if err := repository.ValidateJobExecutionForUpdate(op, jobExecution); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.jobExecutions[jobExecution.ID]
	if !ok {
		return exception.NewNotFoundError(op, fmt.Sprintf("Invalid JobExecution, ID %d not found.", jobExecution.ID))
	}
	if stored.Version != jobExecution.Version {
		return exception.NewOptimisticLockingFailureException(op,
			fmt.Sprintf("JobExecution (ID: %d) version %d is stale, stored version is %d", jobExecution.ID, jobExecution.Version, stored.Version), nil)
	}

	row := storedJobExecution(jobExecution)
	row.Version = jobExecution.Version + 1
	r.jobExecutions[jobExecution.ID] = row
	jobExecution.IncrementVersion()
	return nil
}

// FindJobExecutions returns all executions of instance, newest id first.
func (r *InMemoryJobRepository) FindJobExecutions(ctx context.Context, instance *model.JobInstance) ([]*model.JobExecution, error) {
	const op = "InMemoryJobRepository.FindJobExecutions"
	if instance == nil || instance.ID == 0 {
		return nil, exception.NewValidationError(op, "JobInstance and its id cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.JobExecution
	for _, row := range r.jobExecutions {
		if row.JobInstanceID == instance.ID {
			result = append(result, loadedJobExecution(row))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

// GetLastJobExecution returns the most recently created execution of instance, or nil.
func (r *InMemoryJobRepository) GetLastJobExecution(ctx context.Context, instance *model.JobInstance) (*model.JobExecution, error) {
	executions, err := r.FindJobExecutions(ctx, instance)
	if err != nil || len(executions) == 0 {
		return nil, err
	}
	last := executions[0]
	for _, je := range executions[1:] {
		if je.CreateTime.After(last.CreateTime) {
			last = je
		}
	}
	return last, nil
}

// FindRunningJobExecutions returns executions of jobName without an end time.
func (r *InMemoryJobRepository) FindRunningJobExecutions(ctx context.Context, jobName string) ([]*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.JobExecution
	for _, row := range r.jobExecutions {
		ji, ok := r.jobInstances[row.JobInstanceID]
		if ok && ji.JobName == jobName && row.EndTime == nil {
			result = append(result, loadedJobExecution(row))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

// GetJobExecution finds an execution by id, or nil.
func (r *InMemoryJobRepository) GetJobExecution(ctx context.Context, executionID int64) (*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.jobExecutions[executionID]
	if !ok {
		return nil, nil
	}
	return loadedJobExecution(row), nil
}

// SynchronizeStatus reconciles the in-memory status and version with the stored row.
func (r *InMemoryJobRepository) SynchronizeStatus(ctx context.Context, jobExecution *model.JobExecution) error {
	const op = "InMemoryJobRepository.SynchronizeStatus"
	if jobExecution == nil || jobExecution.ID == 0 {
		return exception.NewValidationError(op, "JobExecution must have an id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.jobExecutions[jobExecution.ID]
	if ok && stored.Version == jobExecution.Version {
		return nil
	}
	if !ok {
		stored = storedJobExecution(jobExecution)
		r.jobExecutions[jobExecution.ID] = stored
	}
	jobExecution.UpgradeStatus(stored.Status)
	jobExecution.Version = stored.Version
	return nil
}
