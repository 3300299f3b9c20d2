// Package decision holds the per-run step status accumulator and the gate that turns
// partial step failure into job failure.
package decision

import (
	"context"
	"sort"
	"sync"

	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
)

// StatusAccumulator collects the terminal exit status of each step of one job run.
// It is safe for concurrent use.
type StatusAccumulator struct {
	mu       sync.Mutex
	statuses map[string]model.ExitStatus
	order    []string
}

// NewStatusAccumulator creates an empty accumulator.
func NewStatusAccumulator() *StatusAccumulator {
	return &StatusAccumulator{statuses: make(map[string]model.ExitStatus)}
}

// Record stores the exit status of stepName, replacing any earlier one.
func (a *StatusAccumulator) Record(stepName string, status model.ExitStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.statuses[stepName]; !ok {
		a.order = append(a.order, stepName)
	}
	a.statuses[stepName] = status
}

// Snapshot returns a copy of the recorded statuses.
func (a *StatusAccumulator) Snapshot() map[string]model.ExitStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]model.ExitStatus, len(a.statuses))
	for k, v := range a.statuses {
		out[k] = v
	}
	return out
}

// StepNames returns the recorded step names in recording order.
func (a *StatusAccumulator) StepNames() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.order...)
}

// NotCompleted returns the sorted names of steps whose exit code is not COMPLETED.
func (a *StatusAccumulator) NotCompleted() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var names []string
	for name, st := range a.statuses {
		if !st.IsCompleted() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

type accumulatorKey struct{}

// WithAccumulator returns a context carrying acc for the duration of one job run.
func WithAccumulator(ctx context.Context, acc *StatusAccumulator) context.Context {
	return context.WithValue(ctx, accumulatorKey{}, acc)
}

// AccumulatorFromContext returns the accumulator of the current run, or nil.
func AccumulatorFromContext(ctx context.Context) *StatusAccumulator {
	acc, _ := ctx.Value(accumulatorKey{}).(*StatusAccumulator)
	return acc
}
