package repository

import (
	"context"
)

// Sequence hands out monotonically increasing ids per counter name.
type Sequence interface {
	NextID(ctx context.Context, counterName string) (int64, error)
}

// JobRepository is the interface for persisting and managing batch execution metadata, similar to Spring Batch's JobRepository.
// It embeds multiple smaller repository interfaces to separate concerns.
type JobRepository interface {
	JobInstance
	JobExecution
	StepExecution
	ExecutionContext

	// Close releases resources used by the repository.
	Close() error
}
