package usecase

import (
	"context"
	"fmt"

	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/repository"
	exception "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// SimpleJobExplorer is a simple implementation of the JobExplorer interface.
// It queries batch metadata using a JobRepository.
type SimpleJobExplorer struct {
	jobRepository repository.JobRepository
}

// Verify that SimpleJobExplorer implements the JobExplorer interface.
var _ JobExplorer = (*SimpleJobExplorer)(nil)

// NewSimpleJobExplorer creates a new instance of SimpleJobExplorer.
func NewSimpleJobExplorer(jobRepository repository.JobRepository) *SimpleJobExplorer {
	return &SimpleJobExplorer{
		jobRepository: jobRepository,
	}
}

// GetJobExecution retrieves a JobExecution by its ID.
func (e *SimpleJobExplorer) GetJobExecution(ctx context.Context, executionID int64) (*model.JobExecution, error) {
	jobExecution, err := e.jobRepository.GetJobExecution(ctx, executionID)
	if err != nil {
		return nil, exception.NewBatchError("job_explorer", fmt.Sprintf("Failed to retrieve JobExecution (ID: %d)", executionID), err, false, false)
	}
	if jobExecution == nil {
		return nil, nil
	}
	if err := e.jobRepository.AddStepExecutions(ctx, jobExecution); err != nil {
		return nil, exception.NewBatchError("job_explorer", fmt.Sprintf("Failed to load StepExecutions of JobExecution (ID: %d)", executionID), err, false, false)
	}
	return jobExecution, nil
}

// GetJobExecutions retrieves all JobExecutions associated with the specified JobInstance.
func (e *SimpleJobExplorer) GetJobExecutions(ctx context.Context, instanceID int64) ([]*model.JobExecution, error) {
	jobInstance, err := e.jobRepository.GetJobInstanceByID(ctx, instanceID)
	if err != nil {
		return nil, exception.NewBatchError("job_explorer", fmt.Sprintf("Failed to retrieve JobInstance (ID: %d)", instanceID), err, false, false)
	}
	if jobInstance == nil {
		logger.Warnf("JobInstance (ID: %d) not found.", instanceID)
		return []*model.JobExecution{}, nil
	}

	jobExecutions, err := e.jobRepository.FindJobExecutions(ctx, jobInstance)
	if err != nil {
		return nil, exception.NewBatchError("job_explorer", fmt.Sprintf("Failed to retrieve JobExecutions associated with JobInstance (ID: %d)", instanceID), err, false, false)
	}
	logger.Debugf("Retrieved %d JobExecutions associated with JobInstance (ID: %d).", len(jobExecutions), instanceID)
	return jobExecutions, nil
}

// GetLastJobExecution retrieves the latest JobExecution for a given JobInstance.
func (e *SimpleJobExplorer) GetLastJobExecution(ctx context.Context, instanceID int64) (*model.JobExecution, error) {
	jobInstance, err := e.jobRepository.GetJobInstanceByID(ctx, instanceID)
	if err != nil {
		return nil, exception.NewBatchError("job_explorer", fmt.Sprintf("Failed to retrieve JobInstance (ID: %d)", instanceID), err, false, false)
	}
	if jobInstance == nil {
		return nil, nil
	}
	return e.jobRepository.GetLastJobExecution(ctx, jobInstance)
}

// GetJobInstance retrieves a JobInstance by its ID.
func (e *SimpleJobExplorer) GetJobInstance(ctx context.Context, instanceID int64) (*model.JobInstance, error) {
	return e.jobRepository.GetJobInstanceByID(ctx, instanceID)
}

// GetJobInstances lists instances of jobName, newest first.
func (e *SimpleJobExplorer) GetJobInstances(ctx context.Context, jobName string, start, count int) ([]*model.JobInstance, error) {
	return e.jobRepository.GetJobInstances(ctx, jobName, start, count)
}

// GetJobInstanceCount counts instances of jobName.
func (e *SimpleJobExplorer) GetJobInstanceCount(ctx context.Context, jobName string) (int, error) {
	return e.jobRepository.GetJobInstanceCount(ctx, jobName)
}

// GetJobNames retrieves all job names with at least one instance.
func (e *SimpleJobExplorer) GetJobNames(ctx context.Context) ([]string, error) {
	return e.jobRepository.GetJobNames(ctx)
}

// FindRunningJobExecutions lists executions of jobName that have not ended.
func (e *SimpleJobExplorer) FindRunningJobExecutions(ctx context.Context, jobName string) ([]*model.JobExecution, error) {
	return e.jobRepository.FindRunningJobExecutions(ctx, jobName)
}
