package inmemory

import (
	"context"

	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
)

// GetJobExecutionContext returns a copy of the stored job context, empty when none was saved.
func (r *InMemoryJobRepository) GetJobExecutionContext(ctx context.Context, jobExecution *model.JobExecution) (model.ExecutionContext, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ec, ok := r.jobContexts[jobExecution.ID]; ok {
		return ec.Copy(), nil
	}
	return model.NewExecutionContext(), nil
}

// GetStepExecutionContext returns a copy of the stored step context, empty when none was saved.
func (r *InMemoryJobRepository) GetStepExecutionContext(ctx context.Context, stepExecution *model.StepExecution) (model.ExecutionContext, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ec, ok := r.stepContexts[stepExecution.ID]; ok {
		return ec.Copy(), nil
	}
	return model.NewExecutionContext(), nil
}

// SaveJobExecutionContext replaces the stored context of jobExecution.
func (r *InMemoryJobRepository) SaveJobExecutionContext(ctx context.Context, jobExecution *model.JobExecution) error {
	const op = "InMemoryJobRepository.SaveJobExecutionContext"
	if jobExecution == nil || jobExecution.ID == 0 {
		return exception.NewValidationError(op, "JobExecution must have an id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobContexts[jobExecution.ID] = jobExecution.ExecutionContext.Copy()
	return nil
}

// SaveStepExecutionContext replaces the stored context of stepExecution.
func (r *InMemoryJobRepository) SaveStepExecutionContext(ctx context.Context, stepExecution *model.StepExecution) error {
	const op = "InMemoryJobRepository.SaveStepExecutionContext"
	if stepExecution == nil || stepExecution.ID == 0 {
		return exception.NewValidationError(op, "StepExecution must have an id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stepContexts[stepExecution.ID] = stepExecution.ExecutionContext.Copy()
	return nil
}

// UpdateJobExecutionContext is the same full replace as SaveJobExecutionContext.
func (r *InMemoryJobRepository) UpdateJobExecutionContext(ctx context.Context, jobExecution *model.JobExecution) error {
	return r.SaveJobExecutionContext(ctx, jobExecution)
}

// UpdateStepExecutionContext is the same full replace as SaveStepExecutionContext.
func (r *InMemoryJobRepository) UpdateStepExecutionContext(ctx context.Context, stepExecution *model.StepExecution) error {
	return r.SaveStepExecutionContext(ctx, stepExecution)
}

// SaveExecutionContexts saves the context of each step and of its owning job execution.
func (r *InMemoryJobRepository) SaveExecutionContexts(ctx context.Context, stepExecutions []*model.StepExecution) error {
	const op = "InMemoryJobRepository.SaveExecutionContexts"
	if stepExecutions == nil {
		return exception.NewValidationError(op, "Attempt to save a nil collection of step executions")
	}
	for _, se := range stepExecutions {
		if err := r.SaveStepExecutionContext(ctx, se); err != nil {
			return err
		}
		if se.JobExecution != nil {
			if err := r.SaveJobExecutionContext(ctx, se.JobExecution); err != nil {
				return err
			}
		}
	}
	return nil
}
