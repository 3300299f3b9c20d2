// Package app wires the dataset sync job: one tasklet step per dataset, the completion gate,
// and the run-once or scheduled launch of the job.
package app

import (
	"go.uber.org/fx"

	"github.com/tigerroll/surfin-datasync/pkg/batch/component/loader"
	port "github.com/tigerroll/surfin-datasync/pkg/batch/core/application/port"
	config "github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
	support "github.com/tigerroll/surfin-datasync/pkg/batch/core/config/support"
	repository "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/repository"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/job/runner"
	metrics "github.com/tigerroll/surfin-datasync/pkg/batch/core/metrics"
	incrementer "github.com/tigerroll/surfin-datasync/pkg/batch/core/support/incrementer"
	tasklet "github.com/tigerroll/surfin-datasync/pkg/batch/engine/step/tasklet"
)

// SyncJobParams collects what the sync job is assembled from.
type SyncJobParams struct {
	fx.In
	Config         *config.Config
	Descriptors    []loader.Descriptor
	Loader         *loader.Loader
	JobRepository  repository.JobRepository
	Gate           port.Decision
	JobListeners   []port.JobExecutionListener  `group:"jobListeners"`
	StepListeners  []port.StepExecutionListener `group:"stepListeners"`
	MetricRecorder metrics.MetricRecorder
	Tracer         metrics.Tracer
}

// NewSyncJob builds the flow job with one load step per descriptor, in descriptor order.
func NewSyncJob(p SyncJobParams) *runner.FlowJob {
	steps := make([]port.Step, 0, len(p.Descriptors))
	for _, d := range p.Descriptors {
		steps = append(steps, tasklet.NewTaskletStep(
			d.Name,
			loader.NewLoadTasklet(d, p.Loader),
			p.JobRepository,
			p.StepListeners,
			p.Tracer,
		))
	}
	batch := p.Config.Surfin.Batch
	return runner.NewFlowJob(batch.JobName, steps, p.Gate, batch.GateBefore,
		p.JobRepository, p.JobListeners, p.MetricRecorder, p.Tracer)
}

// NewSyncJobRegistration registers the sync job with the JobFactory. Launches without
// parameters get a fresh run.id from the timestamp incrementer.
func NewSyncJobRegistration(p SyncJobParams) support.JobRegistration {
	return support.JobRegistration{
		Name: p.Config.Surfin.Batch.JobName,
		Builder: func() (port.Job, error) {
			return NewSyncJob(p), nil
		},
		Incrementer: incrementer.NewTimestampIncrementer(incrementer.DefaultRunIDName),
	}
}
