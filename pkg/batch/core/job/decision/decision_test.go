package decision_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/job/decision"
)

func stepWith(name string, es model.ExitStatus) *model.StepExecution {
	se := model.NewStepExecution(name, nil)
	se.ExitStatus = es
	return se
}

func TestDecide_AllCompletedReturnsTriggeringStatus(t *testing.T) {
	acc := decision.NewStatusAccumulator()
	acc.Record("A", model.ExitStatusCompleted)
	acc.Record("B", model.ExitStatusCompleted)
	acc.Record("C", model.ExitStatusCompleted)
	ctx := decision.WithAccumulator(context.Background(), acc)

	gate := decision.NewAllStepsCompletedDecision("gate")
	es, err := gate.Decide(ctx, &model.JobExecution{}, stepWith("C", model.ExitStatusCompleted))
	require.NoError(t, err)
	assert.Equal(t, model.ExitCodeCompleted, es.ExitCode)
}

func TestDecide_AnyFailedYieldsFailed(t *testing.T) {
	acc := decision.NewStatusAccumulator()
	acc.Record("A", model.ExitStatusCompleted)
	acc.Record("B", model.ExitStatusFailed)
	ctx := decision.WithAccumulator(context.Background(), acc)

	es, err := decision.NewAllStepsCompletedDecision("gate").Decide(ctx, &model.JobExecution{}, stepWith("B", model.ExitStatusFailed))
	require.NoError(t, err)
	assert.Equal(t, model.ExitCodeFailed, es.ExitCode)
	assert.Contains(t, es.ExitDescription, "B")
	assert.NotContains(t, es.ExitDescription, "A")
	assert.Equal(t, []string{"B"}, acc.NotCompleted())
}

func TestDecide_EmptyAccumulatorReturnsTriggeringStatus(t *testing.T) {
	ctx := decision.WithAccumulator(context.Background(), decision.NewStatusAccumulator())
	noop := model.ExitStatusNoOp
	es, err := decision.NewAllStepsCompletedDecision("").Decide(ctx, &model.JobExecution{}, stepWith("X", noop))
	require.NoError(t, err)
	assert.Equal(t, noop, es)
}

func TestStatusAccumulator_ConcurrentRecord(t *testing.T) {
	acc := decision.NewStatusAccumulator()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			acc.Record(fmt.Sprintf("step-%d", i), model.ExitStatusCompleted)
		}(i)
	}
	wg.Wait()
	assert.Len(t, acc.Snapshot(), 50)
	assert.Empty(t, acc.NotCompleted())
}

func TestStepFailures(t *testing.T) {
	je := &model.JobExecution{}
	ok := je.CreateStepExecution("ok")
	ok.ExitStatus = model.ExitStatusCompleted
	bad := je.CreateStepExecution("bad")
	bad.MarkAsFailed(errors.New("fetch exhausted"))

	err := decision.StepFailures(je)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step bad")
	assert.NotContains(t, err.Error(), "step ok")

	bad.ExitStatus = model.ExitStatusCompleted
	assert.NoError(t, decision.StepFailures(je))
}
