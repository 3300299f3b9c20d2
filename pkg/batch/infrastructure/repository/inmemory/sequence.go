package inmemory

import (
	"context"
	"sync"

	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/repository"
)

// Sequence is a mutex-guarded set of named counters.
type Sequence struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewSequence creates a Sequence with every counter at zero.
func NewSequence() *Sequence {
	return &Sequence{counters: make(map[string]int64)}
}

// NextID increments counterName and returns the new value. The first call returns 1.
func (s *Sequence) NextID(ctx context.Context, counterName string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[counterName]++
	return s.counters[counterName], nil
}

var _ repository.Sequence = (*Sequence)(nil)
