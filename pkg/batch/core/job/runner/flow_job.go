package runner

import (
	"context"
	"errors"

	port "github.com/tigerroll/surfin-datasync/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/repository"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/job/decision"
	metrics "github.com/tigerroll/surfin-datasync/pkg/batch/core/metrics"
	exception "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// FlowJob runs its steps one after another regardless of their outcome. A gate decision placed
// before one of the steps (or after the last one) fails the job when any earlier step did not complete.
type FlowJob struct {
	id             string
	name           string
	steps          []port.Step
	gate           port.Decision
	gateBefore     string
	jobRepository  repository.JobRepository
	jobListeners   []port.JobExecutionListener
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
}

// Verify that FlowJob implements the port.Job interface.
var _ port.Job = (*FlowJob)(nil)

// NewFlowJob creates a new instance of FlowJob.
// gateBefore names the step the gate runs in front of; empty or unknown puts the gate after the last step.
func NewFlowJob(
	name string,
	steps []port.Step,
	gate port.Decision,
	gateBefore string,
	jobRepository repository.JobRepository,
	jobListeners []port.JobExecutionListener,
	metricRecorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *FlowJob {
	if metricRecorder == nil {
		metricRecorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	found := false
	for _, s := range steps {
		if s.StepName() == gateBefore {
			found = true
			break
		}
	}
	if gateBefore != "" && !found {
		logger.Warnf("Job '%s': gate position '%s' is not a step of this job; the gate runs after the last step.", name, gateBefore)
		gateBefore = ""
	}
	return &FlowJob{
		id:             name,
		name:           name,
		steps:          steps,
		gate:           gate,
		gateBefore:     gateBefore,
		jobRepository:  jobRepository,
		jobListeners:   jobListeners,
		metricRecorder: metricRecorder,
		tracer:         tracer,
	}
}

// ID returns the job ID.
func (j *FlowJob) ID() string {
	return j.id
}

// JobName returns the job name.
func (j *FlowJob) JobName() string {
	return j.name
}

// StepNames returns the step names in execution order.
func (j *FlowJob) StepNames() []string {
	names := make([]string, 0, len(j.steps))
	for _, s := range j.steps {
		names = append(names, s.StepName())
	}
	return names
}

func (j *FlowJob) notifyBeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	for _, l := range j.jobListeners {
		l.BeforeJob(ctx, jobExecution)
	}
}

func (j *FlowJob) notifyAfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	for _, l := range j.jobListeners {
		l.AfterJob(ctx, jobExecution)
	}
}

// Run executes the flow. Step failures are recorded but never returned; the returned error
// reports infrastructure problems only, such as a StepExecution that could not be saved.
func (j *FlowJob) Run(ctx context.Context, jobExecution *model.JobExecution) error {
	logger.Infof("Starting Job '%s' (Execution ID: %d).", j.name, jobExecution.ID)

	ctx, finishSpan := j.tracer.StartJobSpan(ctx, jobExecution)
	defer finishSpan()

	acc := decision.NewStatusAccumulator()
	ctx = decision.WithAccumulator(ctx, acc)

	j.metricRecorder.RecordJobStart(ctx, jobExecution)
	j.notifyBeforeJob(ctx, jobExecution)

	defer func() {
		j.notifyAfterJob(ctx, jobExecution)
		j.metricRecorder.RecordJobEnd(ctx, jobExecution)

		logger.Infof("Job '%s' (Execution ID: %d) finished. Final Status: %s, Exit Status: %s",
			j.name, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
		for _, se := range jobExecution.StepExecutions {
			logger.Debugf("  StepExecution Details (Step: %s): %s", se.StepName, se.DebugString())
		}
	}()

	var last *model.StepExecution
	gated := false
	for _, step := range j.steps {
		if err := ctx.Err(); err != nil {
			logger.Warnf("Context cancelled, interrupting execution of Job '%s': %v", j.name, err)
			jobExecution.AddFailureException(err)
			jobExecution.Finish(model.BatchStatusStopped, model.ExitStatusStopped)
			return err
		}

		if j.gate != nil && step.StepName() == j.gateBefore {
			gated = true
			if !j.passGate(ctx, jobExecution, last) {
				return nil
			}
		}

		se, err := j.executeStep(ctx, jobExecution, step)
		if err != nil {
			return err
		}
		last = se
	}

	if j.gate != nil && !gated {
		if !j.passGate(ctx, jobExecution, last) {
			return nil
		}
	}

	jobExecution.MarkAsCompleted()
	return nil
}

func (j *FlowJob) executeStep(ctx context.Context, jobExecution *model.JobExecution, step port.Step) (*model.StepExecution, error) {
	stepName := step.StepName()
	stepExecution := jobExecution.CreateStepExecution(stepName)
	if err := j.jobRepository.SaveStepExecution(ctx, stepExecution); err != nil {
		logger.Errorf("Job '%s': Failed to save StepExecution for step '%s': %v", j.name, stepName, err)
		jobExecution.MarkAsFailed(err)
		j.tracer.RecordError(ctx, "job_runner", err)
		return nil, exception.NewBatchError(j.name, "Error saving new StepExecution", err, false, false)
	}
	if err := j.jobRepository.SaveStepExecutionContext(ctx, stepExecution); err != nil {
		logger.Warnf("Job '%s': Failed to save initial ExecutionContext of step '%s': %v", j.name, stepName, err)
	}
	logger.Infof("Job '%s': Created and saved new StepExecution (ID: %d) for step '%s'.", j.name, stepExecution.ID, stepName)

	stepCtx := port.GetContextWithStepExecution(ctx, stepExecution)
	if err := step.Execute(stepCtx, jobExecution, stepExecution); err != nil {
		// Best effort: the next step runs anyway and the gate decides.
		logger.Errorf("Job '%s': Error occurred during execution of step '%s': %v", j.name, stepName, err)
		jobExecution.AddFailureException(err)
		j.tracer.RecordError(ctx, "job_runner", err)
		if errors.Is(err, context.Canceled) {
			return stepExecution, nil
		}
	} else {
		logger.Infof("Job '%s': Step '%s' completed. ExitStatus: %s", j.name, stepName, stepExecution.ExitStatus)
	}
	return stepExecution, nil
}

// passGate runs the gate and ends the job FAILED if it does not return COMPLETED.
func (j *FlowJob) passGate(ctx context.Context, jobExecution *model.JobExecution, triggering *model.StepExecution) bool {
	es, err := j.gate.Decide(ctx, jobExecution, triggering)
	if err != nil {
		logger.Errorf("Job '%s': Error occurred during execution of decision '%s': %v", j.name, j.gate.ID(), err)
		j.tracer.RecordError(ctx, "job_runner", err)
		jobExecution.MarkAsFailed(err)
		return false
	}
	logger.Infof("Job '%s': Decision '%s' completed. Result: %s", j.name, j.gate.ID(), es)
	if es.ExitCode == model.ExitCodeFailed {
		jobExecution.Finish(model.BatchStatusFailed, es)
		if agg := decision.StepFailures(jobExecution); agg != nil {
			jobExecution.AddFailureException(agg)
		}
		return false
	}
	return true
}
