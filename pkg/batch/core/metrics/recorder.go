package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
)

// MetricRecorder is an abstract interface for recording metrics related to batch execution.
//
// For the load pipeline an "item" is a CSV row: reads count parsed rows, writes count documents
// inserted into staging and skips count quarantined rows.
type MetricRecorder interface {
	// RecordJobStart records the start of a JobExecution.
	RecordJobStart(ctx context.Context, execution *model.JobExecution)

	// RecordJobEnd records the end of a JobExecution.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)

	// RecordStepStart records the start of a StepExecution.
	RecordStepStart(ctx context.Context, execution *model.StepExecution)

	// RecordStepEnd records the end of a StepExecution.
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)

	// RecordItemRead records count rows read by stepName.
	RecordItemRead(ctx context.Context, stepName string, count int)

	// RecordItemWrite records count documents written by stepName.
	RecordItemWrite(ctx context.Context, stepName string, count int)

	// RecordItemSkip records count rows skipped by stepName.
	// reason is a short label such as "row_parse".
	RecordItemSkip(ctx context.Context, stepName string, reason string, count int)

	// RecordItemRetry records a retried remote call.
	RecordItemRetry(ctx context.Context, stepName string, reason string)

	// RecordChunkCommit records a flushed chunk of count documents.
	RecordChunkCommit(ctx context.Context, stepName string, count int)

	// RecordDuration records the execution time of a specific operation.
	//
	// name: the duration name, e.g. "load_phase".
	// tags: additional labels, e.g. `{"dataset": "haulage_info", "phase": "SWAP"}`.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
