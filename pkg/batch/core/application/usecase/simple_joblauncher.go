package usecase

import (
	"context"
	"fmt"

	port "github.com/tigerroll/surfin-datasync/pkg/batch/core/application/port"
	support "github.com/tigerroll/surfin-datasync/pkg/batch/core/config/support"
	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/repository"
	exception "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// SimpleJobLauncher implements JobLauncher for local, synchronous execution.
// Restarting an existing job instance is not allowed: each launch needs fresh parameters.
type SimpleJobLauncher struct {
	jobRepository repository.JobRepository
	jobFactory    *support.JobFactory
	jobRunner     port.JobRunner
}

// NewSimpleJobLauncher creates a new SimpleJobLauncher.
func NewSimpleJobLauncher(
	repo repository.JobRepository,
	factory *support.JobFactory,
	runner port.JobRunner,
) *SimpleJobLauncher {
	return &SimpleJobLauncher{
		jobRepository: repo,
		jobFactory:    factory,
		jobRunner:     runner,
	}
}

// Launch launches a job execution and waits for it to finish.
func (l *SimpleJobLauncher) Launch(ctx context.Context, jobName string, jobParameters model.JobParameters) (*model.JobExecution, error) {
	const op = "SimpleJobLauncher.Launch"

	// 1. Retrieve Job Definition
	job, err := l.jobFactory.CreateJob(jobName)
	if err != nil {
		return nil, err
	}

	// 2. Parameters: without explicit ones, the incrementer supplies the run id
	if jobParameters.Params == nil {
		jobParameters = model.NewJobParameters()
	}
	if jobParameters.IsEmpty() {
		if incrementer := l.jobFactory.GetJobParametersIncrementer(jobName); incrementer != nil {
			jobParameters = incrementer.GetNext(jobParameters)
			logger.Infof("Generated new JobParameters using JobParametersIncrementer: %s", jobParameters.String())
		}
	}
	logger.Infof("Launching Job '%s' using JobLauncher. Parameters: %s", jobName, jobParameters.String())

	// 3. Find/Create JobInstance
	existing, err := l.jobRepository.GetJobInstance(ctx, jobName, jobParameters)
	if err != nil {
		return nil, exception.NewBatchError(op, "Failed to search for existing JobInstance", err, false, false)
	}
	if existing != nil {
		last, err := l.jobRepository.GetLastJobExecution(ctx, existing)
		if err != nil {
			return nil, exception.NewBatchError(op, "Failed to search for the last JobExecution", err, false, false)
		}
		if last != nil && last.Status.IsRunning() {
			return nil, exception.NewIllegalStateError(op,
				fmt.Sprintf("a running JobExecution (ID: %d, Status: %s) already exists for JobInstance (ID: %d)", last.ID, last.Status, existing.ID))
		}
		return nil, exception.NewDuplicateInstanceError(op,
			fmt.Sprintf("JobInstance (ID: %d) of job '%s' already exists for these parameters and the job does not allow restart", existing.ID, jobName), nil)
	}

	jobInstance, err := l.jobRepository.CreateJobInstance(ctx, jobName, jobParameters)
	if err != nil {
		return nil, exception.NewBatchError(op, fmt.Sprintf("Failed to save new JobInstance for '%s'", jobName), err, false, false)
	}
	logger.Infof("Created and saved new JobInstance (ID: %d, JobName: %s).", jobInstance.ID, jobName)

	// 4. Initial persistence of JobExecution
	jobExecution := model.NewJobExecution(jobInstance, jobParameters)
	if err := l.jobRepository.SaveJobExecution(ctx, jobExecution); err != nil {
		return jobExecution, exception.NewBatchError(op, "Failed to save JobExecution initially", err, false, false)
	}
	if err := l.jobRepository.SaveJobExecutionContext(ctx, jobExecution); err != nil {
		return jobExecution, exception.NewBatchError(op, "Failed to save JobExecution context initially", err, false, false)
	}
	logger.Debugf("Initially saved JobExecution (ID: %d) to JobRepository (Status: %s).", jobExecution.ID, jobExecution.Status)

	// 5. Run
	if err := l.jobRunner.Run(ctx, job, jobExecution); err != nil {
		return jobExecution, exception.NewBatchError(op, fmt.Sprintf("Job '%s' (Execution ID: %d) did not run to the end", jobName, jobExecution.ID), err, false, false)
	}
	return jobExecution, nil
}

var _ JobLauncher = (*SimpleJobLauncher)(nil)
