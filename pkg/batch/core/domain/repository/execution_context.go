package repository

import (
	"context"

	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
)

// ExecutionContext persists the contexts attached to job and step executions.
// Saves and updates both replace the whole stored context.
type ExecutionContext interface {
	GetJobExecutionContext(ctx context.Context, jobExecution *model.JobExecution) (model.ExecutionContext, error)
	GetStepExecutionContext(ctx context.Context, stepExecution *model.StepExecution) (model.ExecutionContext, error)
	SaveJobExecutionContext(ctx context.Context, jobExecution *model.JobExecution) error
	SaveStepExecutionContext(ctx context.Context, stepExecution *model.StepExecution) error
	UpdateJobExecutionContext(ctx context.Context, jobExecution *model.JobExecution) error
	UpdateStepExecutionContext(ctx context.Context, stepExecution *model.StepExecution) error

	// SaveExecutionContexts saves the context of each step and of its owning job execution.
	SaveExecutionContexts(ctx context.Context, stepExecutions []*model.StepExecution) error
}
