// Package listener holds the execution listeners of the sync job and the fx module that
// contributes them to the "jobListeners" and "stepListeners" groups.
package listener

import (
	"context"

	port "github.com/tigerroll/surfin-datasync/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/job/decision"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// StepStatusListener records the exit status of every finished step into the status
// accumulator of the current run, where the completion gate reads it.
type StepStatusListener struct{}

// NewStepStatusListener creates a new StepStatusListener.
func NewStepStatusListener() *StepStatusListener {
	return &StepStatusListener{}
}

func (l *StepStatusListener) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {}

// AfterStep records stepExecution's exit status. It never fails the step.
func (l *StepStatusListener) AfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	acc := decision.AccumulatorFromContext(ctx)
	if acc == nil {
		logger.Warnf("StepStatusListener: no status accumulator in context; status of step '%s' not recorded.", stepExecution.StepName)
		return
	}
	acc.Record(stepExecution.StepName, stepExecution.ExitStatus)
	logger.Debugf("StepStatusListener: recorded step '%s' with exit code %s.", stepExecution.StepName, stepExecution.ExitStatus.ExitCode)
}

var _ port.StepExecutionListener = (*StepStatusListener)(nil)
