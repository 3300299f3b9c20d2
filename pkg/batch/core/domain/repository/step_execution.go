package repository

import (
	"context"

	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
)

// StepExecution defines operations on step executions.
type StepExecution interface {
	// SaveStepExecution assigns an id, sets the version to 1 and persists a new StepExecution.
	SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error

	// SaveStepExecutions saves each of stepExecutions.
	SaveStepExecutions(ctx context.Context, stepExecutions []*model.StepExecution) error

	// UpdateStepExecution follows the same optimistic contract as UpdateJobExecution.
	UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error

	// GetStepExecution finds a step execution of jobExecution by id, or nil.
	GetStepExecution(ctx context.Context, jobExecution *model.JobExecution, stepExecutionID int64) (*model.StepExecution, error)

	// AddStepExecutions loads all step executions of jobExecution, ascending by id, and attaches them.
	AddStepExecutions(ctx context.Context, jobExecution *model.JobExecution) error

	// CountStepExecutions counts executions of stepName across all executions of instance.
	CountStepExecutions(ctx context.Context, instance *model.JobInstance, stepName string) (int, error)
}
