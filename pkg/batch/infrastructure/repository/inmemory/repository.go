// Package inmemory provides an in-memory implementation of the JobRepository interface.
// It keeps copies of every stored entity so that later changes to the caller's objects are
// only visible after an explicit save or update, like with the Mongo backend.
package inmemory

import (
	"context"
	"sync"

	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/repository"
)

// InMemoryJobRepository is an in-memory implementation of the JobRepository interface.
type InMemoryJobRepository struct {
	jobInstances   map[int64]model.JobInstance
	jobExecutions  map[int64]model.JobExecution
	stepExecutions map[int64]model.StepExecution
	jobContexts    map[int64]model.ExecutionContext
	stepContexts   map[int64]model.ExecutionContext
	sequence       *Sequence
	mu             sync.RWMutex // Mutex to protect concurrent access to maps.
}

// NewInMemoryJobRepository creates and initializes a new instance of InMemoryJobRepository.
func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		jobInstances:   make(map[int64]model.JobInstance),
		jobExecutions:  make(map[int64]model.JobExecution),
		stepExecutions: make(map[int64]model.StepExecution),
		jobContexts:    make(map[int64]model.ExecutionContext),
		stepContexts:   make(map[int64]model.ExecutionContext),
		sequence:       NewSequence(),
	}
}

func (r *InMemoryJobRepository) nextID(ctx context.Context, name string) int64 {
	id, _ := r.sequence.NextID(ctx, name)
	return id
}

// Close releases resources used by the repository.
// As an in-memory repository, it holds no external resources, so this method always returns nil.
func (r *InMemoryJobRepository) Close() error {
	return nil
}

var _ repository.JobRepository = (*InMemoryJobRepository)(nil)
