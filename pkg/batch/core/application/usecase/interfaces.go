package usecase

import (
	"context"

	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
)

// JobLauncher is an interface for launching a Job with JobParameters.
// It is equivalent to Spring Batch's JobLauncher.
type JobLauncher interface {
	// Launch runs the job synchronously and returns its JobExecution.
	// A failed run is reported through the execution's status; the error covers launch
	// problems and metadata persistence failures.
	Launch(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error)
}

// JobExplorer is an interface for querying batch metadata (JobInstance, JobExecution, StepExecution).
// It is equivalent to Spring Batch's JobExplorer.
type JobExplorer interface {
	// GetJobExecution retrieves a JobExecution by its ID, with its step executions attached.
	GetJobExecution(ctx context.Context, executionID int64) (*model.JobExecution, error)

	// GetJobExecutions retrieves all JobExecutions associated with the specified JobInstance.
	GetJobExecutions(ctx context.Context, instanceID int64) ([]*model.JobExecution, error)

	// GetLastJobExecution retrieves the latest JobExecution for a given JobInstance.
	GetLastJobExecution(ctx context.Context, instanceID int64) (*model.JobExecution, error)

	// GetJobInstance retrieves a JobInstance by its ID.
	GetJobInstance(ctx context.Context, instanceID int64) (*model.JobInstance, error)

	// GetJobInstances lists instances of jobName, newest first.
	GetJobInstances(ctx context.Context, jobName string, start, count int) ([]*model.JobInstance, error)

	// GetJobInstanceCount counts instances of jobName.
	GetJobInstanceCount(ctx context.Context, jobName string) (int, error)

	// GetJobNames retrieves all job names with at least one instance.
	GetJobNames(ctx context.Context) ([]string, error)

	// FindRunningJobExecutions lists executions of jobName that have not ended.
	FindRunningJobExecutions(ctx context.Context, jobName string) ([]*model.JobExecution, error)
}
