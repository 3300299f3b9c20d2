package decision

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	port "github.com/tigerroll/surfin-datasync/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	exception "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// AllStepsCompletedDecision passes the flow on only if every step recorded so far completed.
type AllStepsCompletedDecision struct {
	id string
}

// NewAllStepsCompletedDecision creates the gate with the given flow element id.
func NewAllStepsCompletedDecision(id string) *AllStepsCompletedDecision {
	if id == "" {
		id = "allStepsCompleted"
	}
	return &AllStepsCompletedDecision{id: id}
}

func (d *AllStepsCompletedDecision) ID() string { return d.id }

func (d *AllStepsCompletedDecision) DecisionName() string { return d.id }

// Decide returns the triggering step's exit status when every recorded step completed,
// and FAILED listing the other steps otherwise. Without an accumulator in ctx nothing has
// been recorded, which counts as all completed.
func (d *AllStepsCompletedDecision) Decide(ctx context.Context, jobExecution *model.JobExecution, triggeringStep *model.StepExecution) (model.ExitStatus, error) {
	triggering := model.ExitStatusCompleted
	if triggeringStep != nil {
		triggering = triggeringStep.ExitStatus
	}

	acc := AccumulatorFromContext(ctx)
	if acc == nil {
		logger.Warnf("Decision '%s': no step statuses recorded for this run.", d.id)
		return triggering, nil
	}

	failed := acc.NotCompleted()
	if len(failed) == 0 {
		logger.Infof("Decision '%s': all %d steps completed.", d.id, len(acc.StepNames()))
		return triggering, nil
	}

	logger.Errorf("Decision '%s': steps not completed: %s", d.id, strings.Join(failed, ", "))
	return model.ExitStatusFailed.AddExitDescription(
		fmt.Sprintf("Steps not completed: %s", strings.Join(failed, ", "))), nil
}

// StepFailures aggregates the failures of the not-completed steps of jobExecution into one error.
// It returns nil when every step completed.
func StepFailures(jobExecution *model.JobExecution) error {
	var result *multierror.Error
	for _, se := range jobExecution.StepExecutions {
		if se.ExitStatus.IsCompleted() {
			continue
		}
		if len(se.Failures) == 0 {
			result = multierror.Append(result, exception.NewBatchErrorf(se.StepName, "step ended with exit code %s", se.ExitStatus.ExitCode))
			continue
		}
		for _, f := range se.Failures {
			result = multierror.Append(result, fmt.Errorf("step %s: %w", se.StepName, f))
		}
	}
	return result.ErrorOrNil()
}

var _ port.Decision = (*AllStepsCompletedDecision)(nil)
