package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/repository"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
)

func storedStepExecution(se *model.StepExecution) model.StepExecution {
	row := *se
	if se.JobExecution != nil {
		row.JobExecutionID = se.JobExecution.ID
	}
	row.JobExecution = nil
	row.ExecutionContext = nil
	row.Failures = nil
	return row
}

func loadedStepExecution(row model.StepExecution, jobExecution *model.JobExecution) *model.StepExecution {
	se := row
	se.JobExecution = jobExecution
	se.ExecutionContext = model.NewExecutionContext()
	return &se
}

// SaveStepExecution persists a new StepExecution.
func (r *InMemoryJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	const op = "InMemoryJobRepository.SaveStepExecution"
	if err := repository.ValidateStepExecutionForSave(op, stepExecution); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stepExecution.ID = r.nextID(ctx, repository.SequenceStepExecution)
	stepExecution.Version = 1
	if stepExecution.JobExecution != nil {
		stepExecution.JobExecutionID = stepExecution.JobExecution.ID
	}
	r.stepExecutions[stepExecution.ID] = storedStepExecution(stepExecution)
	return nil
}

// SaveStepExecutions saves each of stepExecutions.
func (r *InMemoryJobRepository) SaveStepExecutions(ctx context.Context, stepExecutions []*model.StepExecution) error {
	const op = "InMemoryJobRepository.SaveStepExecutions"
	if stepExecutions == nil {
		return exception.NewValidationError(op, "Attempt to save a nil collection of step executions")
	}
	for _, se := range stepExecutions {
		if err := r.SaveStepExecution(ctx, se); err != nil {
			return err
		}
	}
	return nil
}

// UpdateStepExecution updates an existing StepExecution if its version is current.
func (r *InMemoryJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	const op = "InMemoryJobRepository.UpdateStepExecution"
	if err := repository.ValidateStepExecutionForUpdate(op, stepExecution); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.stepExecutions[stepExecution.ID]
	if !ok {
		return exception.NewNotFoundError(op, fmt.Sprintf("Invalid StepExecution, ID %d not found.", stepExecution.ID))
	}
	if stored.Version != stepExecution.Version {
		return exception.NewOptimisticLockingFailureException(op,
			fmt.Sprintf("StepExecution (ID: %d) version %d is stale, stored version is %d", stepExecution.ID, stepExecution.Version, stored.Version), nil)
	}

	row := storedStepExecution(stepExecution)
	row.Version = stepExecution.Version + 1
	r.stepExecutions[stepExecution.ID] = row
	stepExecution.IncrementVersion()
	return nil
}

// GetStepExecution finds a step execution of jobExecution by id, or nil.
func (r *InMemoryJobRepository) GetStepExecution(ctx context.Context, jobExecution *model.JobExecution, stepExecutionID int64) (*model.StepExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.stepExecutions[stepExecutionID]
	if !ok || jobExecution == nil || row.JobExecutionID != jobExecution.ID {
		return nil, nil
	}
	return loadedStepExecution(row, jobExecution), nil
}

// AddStepExecutions loads all step executions of jobExecution, ascending by id, and attaches them.
func (r *InMemoryJobRepository) AddStepExecutions(ctx context.Context, jobExecution *model.JobExecution) error {
	const op = "InMemoryJobRepository.AddStepExecutions"
	if jobExecution == nil || jobExecution.ID == 0 {
		return exception.NewValidationError(op, "JobExecution must have an id")
	}

	r.mu.RLock()
	var rows []model.StepExecution
	for _, row := range r.stepExecutions {
		if row.JobExecutionID == jobExecution.ID {
			rows = append(rows, row)
		}
	}
	r.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	for _, row := range rows {
		jobExecution.AddStepExecution(loadedStepExecution(row, jobExecution))
	}
	return nil
}

// CountStepExecutions counts executions of stepName across all executions of instance.
func (r *InMemoryJobRepository) CountStepExecutions(ctx context.Context, instance *model.JobInstance, stepName string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, row := range r.stepExecutions {
		if row.StepName != stepName {
			continue
		}
		if je, ok := r.jobExecutions[row.JobExecutionID]; ok && instance != nil && je.JobInstanceID == instance.ID {
			count++
		}
	}
	return count, nil
}
