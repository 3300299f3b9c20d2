package repository

import (
	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	exception "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
)

// Sequence names, one counter per entity type.
const (
	SequenceJobInstance   = "JobInstance"
	SequenceJobExecution  = "JobExecution"
	SequenceStepExecution = "StepExecution"
)

// ValidateJobExecutionForSave checks the fields every backend requires before a first save.
func ValidateJobExecutionForSave(op string, je *model.JobExecution) error {
	switch {
	case je == nil:
		return exception.NewValidationError(op, "JobExecution cannot be nil")
	case je.JobInstanceID == 0:
		return exception.NewValidationError(op, "JobExecution must have a job instance id")
	case je.Status == "":
		return exception.NewValidationError(op, "JobExecution status cannot be empty")
	case je.CreateTime.IsZero():
		return exception.NewValidationError(op, "JobExecution create time cannot be empty")
	}
	return nil
}

// ValidateJobExecutionForUpdate checks that je has been saved before.
func ValidateJobExecutionForUpdate(op string, je *model.JobExecution) error {
	if err := ValidateJobExecutionForSave(op, je); err != nil {
		return err
	}
	if je.ID == 0 {
		return exception.NewValidationError(op, "JobExecution must already be saved (id is not set)")
	}
	if je.Version == 0 {
		return exception.NewValidationError(op, "JobExecution must already be saved (version is not set)")
	}
	return nil
}

// ValidateStepExecutionForSave checks the fields every backend requires before a first save.
func ValidateStepExecutionForSave(op string, se *model.StepExecution) error {
	switch {
	case se == nil:
		return exception.NewValidationError(op, "StepExecution cannot be nil")
	case se.StepName == "":
		return exception.NewValidationError(op, "StepExecution step name cannot be empty")
	case se.StartTime.IsZero():
		return exception.NewValidationError(op, "StepExecution start time cannot be empty")
	case se.Status == "":
		return exception.NewValidationError(op, "StepExecution status cannot be empty")
	}
	return nil
}

// ValidateStepExecutionForUpdate checks that se has been saved before.
func ValidateStepExecutionForUpdate(op string, se *model.StepExecution) error {
	if err := ValidateStepExecutionForSave(op, se); err != nil {
		return err
	}
	if se.ID == 0 {
		return exception.NewValidationError(op, "StepExecution must already be saved (id is not set)")
	}
	if se.Version == 0 {
		return exception.NewValidationError(op, "StepExecution must already be saved (version is not set)")
	}
	return nil
}
