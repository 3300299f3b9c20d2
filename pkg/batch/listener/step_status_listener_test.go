package listener_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/job/decision"
	"github.com/tigerroll/surfin-datasync/pkg/batch/listener"
)

func TestStepStatusListener_RecordsExitStatus(t *testing.T) {
	acc := decision.NewStatusAccumulator()
	ctx := decision.WithAccumulator(context.Background(), acc)
	l := listener.NewStepStatusListener()

	ok := model.NewStepExecution("operational_routes", nil)
	ok.MarkAsCompleted()
	failed := model.NewStepExecution("equipment_cargo", nil)
	failed.MarkAsFailed(errors.New("fetch failed"))

	l.BeforeStep(ctx, ok)
	l.AfterStep(ctx, ok)
	l.AfterStep(ctx, failed)

	snap := acc.Snapshot()
	assert.Len(t, snap, 2)
	assert.Equal(t, model.ExitCodeCompleted, snap["operational_routes"].ExitCode)
	assert.Equal(t, model.ExitCodeFailed, snap["equipment_cargo"].ExitCode)
	assert.Equal(t, []string{"equipment_cargo"}, acc.NotCompleted())
}

func TestStepStatusListener_WithoutAccumulator(t *testing.T) {
	se := model.NewStepExecution("haulage_info", nil)
	se.MarkAsCompleted()
	assert.NotPanics(t, func() {
		listener.NewStepStatusListener().AfterStep(context.Background(), se)
	})
}
