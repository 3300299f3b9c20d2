package tracing

import (
	"context"

	port "github.com/tigerroll/surfin-datasync/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/metrics"
)

// TracingJobListener annotates the job span, which the flow starts before any listener runs.
type TracingJobListener struct {
	tracer metrics.Tracer
}

func NewTracingJobListener(tracer metrics.Tracer) *TracingJobListener {
	return &TracingJobListener{tracer: tracer}
}

func (l *TracingJobListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	l.tracer.RecordEvent(ctx, "job.started", map[string]interface{}{
		"batch.job.parameters": jobExecution.Parameters.String(),
	})
}

func (l *TracingJobListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	l.tracer.RecordEvent(ctx, "job.finished", map[string]interface{}{
		"batch.status":           jobExecution.Status.String(),
		"batch.exit_code":        jobExecution.ExitStatus.ExitCode,
		"batch.exit_description": jobExecution.ExitStatus.ExitDescription,
		"batch.steps":            len(jobExecution.StepExecutions),
	})
}

var _ port.JobExecutionListener = (*TracingJobListener)(nil)

// TracingStepListener annotates the step span and records step failures on it.
type TracingStepListener struct {
	tracer metrics.Tracer
}

func NewTracingStepListener(tracer metrics.Tracer) *TracingStepListener {
	return &TracingStepListener{tracer: tracer}
}

func (l *TracingStepListener) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	l.tracer.RecordEvent(ctx, "step.started", map[string]interface{}{
		"batch.step.name": stepExecution.StepName,
	})
}

func (l *TracingStepListener) AfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	for _, f := range stepExecution.Failures {
		l.tracer.RecordError(ctx, stepExecution.StepName, f)
	}
	l.tracer.RecordEvent(ctx, "step.finished", map[string]interface{}{
		"batch.status":           stepExecution.Status.String(),
		"batch.exit_code":        stepExecution.ExitStatus.ExitCode,
		"batch.step.read_count":  stepExecution.ReadCount,
		"batch.step.write_count": stepExecution.WriteCount,
	})
}

var _ port.StepExecutionListener = (*TracingStepListener)(nil)
