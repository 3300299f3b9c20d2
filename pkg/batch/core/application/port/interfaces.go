// Package port defines the core interfaces (ports) for the batch application.
package port

import (
	"context"

	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
)

// FlowElement is the basic interface representing an element (Step or Decision) in a job flow.
type FlowElement interface {
	// ID returns the unique identifier of the flow element.
	ID() string
}

// Job is an executable batch job.
type Job interface {
	// JobName returns the name used to identify instances of this job.
	JobName() string

	// Run executes the entire flow. The job's final status and exit status are set on jobExecution.
	Run(ctx context.Context, jobExecution *model.JobExecution) error
}

// JobRunner executes a job for an already persisted JobExecution and persists its final state.
type JobRunner interface {
	Run(ctx context.Context, job Job, jobExecution *model.JobExecution) error
}

// Step is one unit of work in a job flow.
type Step interface {
	FlowElement

	// StepName returns the name recorded on the StepExecution.
	StepName() string

	// Execute runs the step. A returned error fails the step but not necessarily the job.
	Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error
}

// Tasklet is the business logic run by a tasklet step.
type Tasklet interface {
	// Execute performs the work and returns the step's exit status.
	Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error)
	// Close releases resources held by the tasklet.
	Close(ctx context.Context) error
}

// Decision chooses the exit status that drives the flow after a step.
type Decision interface {
	FlowElement

	// DecisionName returns the name of the decision.
	DecisionName() string

	// Decide returns the exit status to continue with. triggeringStep is the last step executed, or nil.
	Decide(ctx context.Context, jobExecution *model.JobExecution, triggeringStep *model.StepExecution) (model.ExitStatus, error)
}

// JobParametersIncrementer derives the parameters of the next run from the current ones.
type JobParametersIncrementer interface {
	GetNext(params model.JobParameters) model.JobParameters
}

// StepExecutionListener is notified around each step execution.
type StepExecutionListener interface {
	BeforeStep(ctx context.Context, stepExecution *model.StepExecution)
	AfterStep(ctx context.Context, stepExecution *model.StepExecution)
}

// JobExecutionListener is notified around each job execution.
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}

type contextKey string

const StepExecutionKey contextKey = "stepExecution"

// GetContextWithStepExecution stores a StepExecution in the Context.
func GetContextWithStepExecution(ctx context.Context, se *model.StepExecution) context.Context {
	return context.WithValue(ctx, StepExecutionKey, se)
}

// GetStepExecutionFromContext retrieves a StepExecution from the Context. Returns nil if not found.
func GetStepExecutionFromContext(ctx context.Context) *model.StepExecution {
	if se, ok := ctx.Value(StepExecutionKey).(*model.StepExecution); ok {
		return se
	}
	return nil
}
