package repository

import (
	"context"

	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
)

// JobExecution defines operations on job executions. Updates are conditional on the version
// carried by the in-memory execution.
type JobExecution interface {
	// SaveJobExecution assigns an id, sets the version to 1 and persists a new JobExecution.
	SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error

	// UpdateJobExecution persists the execution if its version matches the stored one,
	// then increments the in-memory version. A mismatch yields an optimistic locking failure.
	UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error

	// FindJobExecutions returns all executions of instance, newest id first.
	FindJobExecutions(ctx context.Context, instance *model.JobInstance) ([]*model.JobExecution, error)

	// GetLastJobExecution returns the most recently created execution of instance, or nil.
	GetLastJobExecution(ctx context.Context, instance *model.JobInstance) (*model.JobExecution, error)

	// FindRunningJobExecutions returns executions of jobName without an end time.
	FindRunningJobExecutions(ctx context.Context, jobName string) ([]*model.JobExecution, error)

	// GetJobExecution finds an execution by id, or nil.
	GetJobExecution(ctx context.Context, executionID int64) (*model.JobExecution, error)

	// SynchronizeStatus reconciles the in-memory status and version with the stored row.
	SynchronizeStatus(ctx context.Context, jobExecution *model.JobExecution) error
}
