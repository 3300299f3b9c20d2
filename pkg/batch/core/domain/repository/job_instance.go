package repository

import (
	"context"

	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
)

// JobInstance defines operations for persisting and retrieving job instance metadata.
// Lookups return (nil, nil) when nothing matches.
type JobInstance interface {
	// CreateJobInstance stores a new instance for (jobName, params).
	// It fails with a DuplicateInstanceError when an instance with the same key already exists.
	CreateJobInstance(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error)

	// GetJobInstance finds the instance for jobName whose key matches params.
	GetJobInstance(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error)

	// GetJobInstanceByID finds a JobInstance by its ID.
	GetJobInstanceByID(ctx context.Context, id int64) (*model.JobInstance, error)

	// GetJobInstanceForExecution finds the instance owning the given execution.
	GetJobInstanceForExecution(ctx context.Context, jobExecution *model.JobExecution) (*model.JobInstance, error)

	// GetJobInstances returns instances of jobName, newest first, starting at start.
	GetJobInstances(ctx context.Context, jobName string, start, count int) ([]*model.JobInstance, error)

	// FindJobInstancesByName behaves like GetJobInstances.
	FindJobInstancesByName(ctx context.Context, jobName string, start, count int) ([]*model.JobInstance, error)

	// GetJobNames returns a sorted list of all distinct job names.
	GetJobNames(ctx context.Context) ([]string, error)

	// GetJobInstanceCount returns the count of JobInstances for a given job name, 0 when there are none.
	GetJobInstanceCount(ctx context.Context, jobName string) (int, error)
}
