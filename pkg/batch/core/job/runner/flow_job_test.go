package runner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/surfin-datasync/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/job/decision"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/job/runner"
	tasklet "github.com/tigerroll/surfin-datasync/pkg/batch/engine/step/tasklet"
	"github.com/tigerroll/surfin-datasync/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/surfin-datasync/pkg/batch/listener"
)

type stubTasklet struct {
	err   error
	calls int
}

func (s *stubTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	s.calls++
	if s.err != nil {
		return model.ExitStatusFailed, s.err
	}
	return model.ExitStatusCompleted, nil
}

func (s *stubTasklet) Close(ctx context.Context) error { return nil }

type flowFixture struct {
	repo     *inmemory.InMemoryJobRepository
	tasklets map[string]*stubTasklet
	job      *runner.FlowJob
}

// newFlow builds a job over the named steps; failing names the steps whose tasklet errors.
func newFlow(t *testing.T, names []string, gateBefore string, failing ...string) *flowFixture {
	t.Helper()
	f := &flowFixture{repo: inmemory.NewInMemoryJobRepository(), tasklets: map[string]*stubTasklet{}}
	fail := map[string]bool{}
	for _, n := range failing {
		fail[n] = true
	}
	listeners := []port.StepExecutionListener{listener.NewStepStatusListener()}
	var steps []port.Step
	for _, n := range names {
		st := &stubTasklet{}
		if fail[n] {
			st.err = errors.New(n + " broke")
		}
		f.tasklets[n] = st
		steps = append(steps, tasklet.NewTaskletStep(n, st, f.repo, listeners, nil))
	}
	f.job = runner.NewFlowJob("SYNC", steps, decision.NewAllStepsCompletedDecision("allStepsCompleted"),
		gateBefore, f.repo, nil, nil, nil)
	return f
}

func (f *flowFixture) run(t *testing.T, ctx context.Context) (*model.JobExecution, error) {
	t.Helper()
	params := model.NewJobParameters()
	params.Put("run.id", int64(1))
	instance, err := f.repo.CreateJobInstance(ctx, "SYNC", params)
	require.NoError(t, err)
	je := model.NewJobExecution(instance, params)
	require.NoError(t, f.repo.SaveJobExecution(ctx, je))
	err = runner.NewSimpleJobRunner(f.repo).Run(ctx, f.job, je)
	return je, err
}

func TestFlowJob_AllStepsCompleted(t *testing.T) {
	f := newFlow(t, []string{"a", "b", "c"}, "c")

	je, err := f.run(t, context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	assert.Equal(t, model.ExitCodeCompleted, je.ExitStatus.ExitCode)
	assert.Len(t, je.StepExecutions, 3)
}

func TestFlowJob_StepsBeforeGateRunDespiteFailure(t *testing.T) {
	f := newFlow(t, []string{"a", "b", "c"}, "c", "a")

	je, err := f.run(t, context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, f.tasklets["b"].calls, "b runs after a failed")
	assert.Zero(t, f.tasklets["c"].calls, "the gate stops the job before c")
	assert.Equal(t, model.BatchStatusFailed, je.Status)
	assert.Contains(t, je.ExitStatus.ExitDescription, "a")
	assert.NotEmpty(t, je.Failures)

	stored, err := f.repo.GetJobExecution(context.Background(), je.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusFailed, stored.Status)
}

func TestFlowJob_StepAfterGateDoesNotDecideOutcome(t *testing.T) {
	f := newFlow(t, []string{"a", "b", "c"}, "c", "c")

	je, err := f.run(t, context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	require.Len(t, je.StepExecutions, 3)
	assert.Equal(t, model.BatchStatusFailed, je.StepExecutions[2].Status)
}

func TestFlowJob_UnknownGatePositionRunsGateLast(t *testing.T) {
	f := newFlow(t, []string{"a", "b"}, "nope", "b")

	je, err := f.run(t, context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusFailed, je.Status)
	assert.Len(t, je.StepExecutions, 2)
}

func TestFlowJob_CancelledContextStops(t *testing.T) {
	f := newFlow(t, []string{"a", "b"}, "")
	ctx, cancel := context.WithCancel(context.Background())

	params := model.NewJobParameters()
	instance, err := f.repo.CreateJobInstance(ctx, "SYNC", params)
	require.NoError(t, err)
	je := model.NewJobExecution(instance, params)
	require.NoError(t, f.repo.SaveJobExecution(ctx, je))
	cancel()

	err = f.job.Run(ctx, je)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, model.BatchStatusStopped, je.Status)
	assert.Zero(t, f.tasklets["a"].calls)
}

func TestFlowJob_StepNames(t *testing.T) {
	f := newFlow(t, []string{"a", "b", "c"}, "")
	assert.Equal(t, []string{"a", "b", "c"}, f.job.StepNames())
}
