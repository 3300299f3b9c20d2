package runner

import (
	"context"

	port "github.com/tigerroll/surfin-datasync/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/repository"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// SimpleJobRunner is an implementation of port.JobRunner that executes the flow by calling the Job's Run method.
type SimpleJobRunner struct {
	jobRepository repository.JobRepository
}

// NewSimpleJobRunner creates an instance of SimpleJobRunner.
func NewSimpleJobRunner(repo repository.JobRepository) *SimpleJobRunner {
	return &SimpleJobRunner{jobRepository: repo}
}

// Run marks the execution STARTED, runs the job and persists the final state.
func (r *SimpleJobRunner) Run(ctx context.Context, job port.Job, jobExecution *model.JobExecution) error {
	jobExecution.MarkAsStarted()
	if err := r.jobRepository.UpdateJobExecution(ctx, jobExecution); err != nil {
		logger.Errorf("JobRunner: Failed to update JobExecution (ID: %d) status to STARTED: %v", jobExecution.ID, err)
		jobExecution.MarkAsFailed(err)
		return err
	}

	err := job.Run(ctx, jobExecution)

	if err != nil {
		if !jobExecution.Status.IsFinished() {
			jobExecution.MarkAsFailed(err)
		}
	} else if !jobExecution.Status.IsFinished() {
		jobExecution.MarkAsCompleted()
	}

	// Metadata writes use a fresh context so a cancelled run is still recorded.
	persistCtx := context.WithoutCancel(ctx)
	if ctxErr := r.jobRepository.UpdateJobExecutionContext(persistCtx, jobExecution); ctxErr != nil {
		logger.Errorf("JobRunner: Failed to persist ExecutionContext of JobExecution (ID: %d): %v", jobExecution.ID, ctxErr)
	}
	if updateErr := r.jobRepository.UpdateJobExecution(persistCtx, jobExecution); updateErr != nil {
		logger.Errorf("JobRunner: Failed to update final JobExecution (ID: %d) state: %v", jobExecution.ID, updateErr)
		if err == nil {
			err = updateErr
		}
	}
	return err
}

var _ port.JobRunner = (*SimpleJobRunner)(nil)
