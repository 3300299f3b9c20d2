package metrics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	coremetrics "github.com/tigerroll/surfin-datasync/pkg/batch/core/metrics"
	listenermetrics "github.com/tigerroll/surfin-datasync/pkg/batch/listener/metrics"
)

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordJobStart(ctx context.Context, e *model.JobExecution) { m.Called(e.JobName) }
func (m *mockRecorder) RecordJobEnd(ctx context.Context, e *model.JobExecution)   { m.Called(e.JobName, e.Status) }
func (m *mockRecorder) RecordStepStart(ctx context.Context, e *model.StepExecution) {
	m.Called(e.StepName)
}
func (m *mockRecorder) RecordStepEnd(ctx context.Context, e *model.StepExecution) {
	m.Called(e.StepName, e.Status)
}
func (m *mockRecorder) RecordItemRead(ctx context.Context, step string, count int)  { m.Called(step, count) }
func (m *mockRecorder) RecordItemWrite(ctx context.Context, step string, count int) { m.Called(step, count) }
func (m *mockRecorder) RecordItemSkip(ctx context.Context, step, reason string, count int) {
	m.Called(step, reason, count)
}
func (m *mockRecorder) RecordItemRetry(ctx context.Context, step, reason string) { m.Called(step, reason) }
func (m *mockRecorder) RecordChunkCommit(ctx context.Context, step string, count int) {
	m.Called(step, count)
}
func (m *mockRecorder) RecordDuration(ctx context.Context, name string, d time.Duration, tags map[string]string) {
	m.Called(name, d, tags)
}

var _ coremetrics.MetricRecorder = (*mockRecorder)(nil)

func TestAsyncMetricRecorder_ForwardsAllEventsOnClose(t *testing.T) {
	rec := new(mockRecorder)
	rec.On("RecordJobStart", "SYNC-DATASETS").Once()
	rec.On("RecordStepStart", "haulage_info").Once()
	rec.On("RecordItemRead", "haulage_info", 4).Once()
	rec.On("RecordItemWrite", "haulage_info", 3).Once()
	rec.On("RecordItemSkip", "haulage_info", "row_parse", 1).Once()
	rec.On("RecordItemRetry", "haulage_info", "fetch").Once()
	rec.On("RecordChunkCommit", "haulage_info", 3).Once()
	rec.On("RecordDuration", "load_phase", time.Second, map[string]string{"phase": "SWAP"}).Once()
	rec.On("RecordStepEnd", "haulage_info", model.BatchStatusCompleted).Once()
	rec.On("RecordJobEnd", "SYNC-DATASETS", model.BatchStatusCompleted).Once()

	async := listenermetrics.NewAsyncMetricRecorder(32, rec)
	ctx := context.Background()

	je := &model.JobExecution{JobName: "SYNC-DATASETS", Status: model.BatchStatusStarted}
	se := model.NewStepExecution("haulage_info", je)
	async.RecordJobStart(ctx, je)
	async.RecordStepStart(ctx, se)
	async.RecordItemRead(ctx, "haulage_info", 4)
	async.RecordItemWrite(ctx, "haulage_info", 3)
	async.RecordItemSkip(ctx, "haulage_info", "row_parse", 1)
	async.RecordItemRetry(ctx, "haulage_info", "fetch")
	async.RecordChunkCommit(ctx, "haulage_info", 3)
	async.RecordDuration(ctx, "load_phase", time.Second, map[string]string{"phase": "SWAP"})
	se.MarkAsCompleted()
	async.RecordStepEnd(ctx, se)
	je.MarkAsCompleted()
	async.RecordJobEnd(ctx, je)

	async.Close()
	async.Close()

	rec.AssertExpectations(t)
}

func TestAsyncMetricRecorder_SnapshotsExecutions(t *testing.T) {
	rec := new(mockRecorder)
	rec.On("RecordJobEnd", "SYNC-DATASETS", model.BatchStatusFailed).Once()

	async := listenermetrics.NewAsyncMetricRecorder(0, rec)
	je := &model.JobExecution{JobName: "SYNC-DATASETS", Status: model.BatchStatusFailed}
	async.RecordJobEnd(context.Background(), je)
	je.Status = model.BatchStatusCompleted
	async.Close()

	rec.AssertExpectations(t)
}

func TestAsyncMetricRecorder_DropsAfterClose(t *testing.T) {
	rec := new(mockRecorder)
	async := listenermetrics.NewAsyncMetricRecorder(4, rec)
	async.Close()
	async.RecordItemRead(context.Background(), "haulage_info", 1)
	assert.Len(t, rec.Calls, 0)
}
