package loader

import (
	"context"

	port "github.com/tigerroll/surfin-datasync/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// ExecutionContext keys written by LoadTasklet.
const (
	ContextKeyDataset         = "loader.dataset"
	ContextKeyInserted        = "loader.inserted"
	ContextKeyQuarantined     = "loader.quarantined"
	ContextKeyChunks          = "loader.chunks"
	ContextKeyCreationDetails = "loader.creation_details"
)

// LoadTasklet loads one dataset as a tasklet step.
type LoadTasklet struct {
	descriptor Descriptor
	loader     *Loader
}

// NewLoadTasklet creates the tasklet for d.
func NewLoadTasklet(d Descriptor, loader *Loader) *LoadTasklet {
	return &LoadTasklet{descriptor: d, loader: loader}
}

// Execute runs the load and copies its result onto the step execution, also when it failed.
func (t *LoadTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	res, err := t.loader.Load(ctx, t.descriptor)

	stepExecution.ReadCount += int64(res.Inserted + res.Quarantined)
	stepExecution.WriteCount += int64(res.Inserted)
	stepExecution.ReadSkipCount += int64(res.Quarantined)
	stepExecution.CommitCount += int64(res.Chunks)

	ec := stepExecution.ExecutionContext
	if ec == nil {
		ec = model.NewExecutionContext()
		stepExecution.ExecutionContext = ec
	}
	ec.Put(ContextKeyDataset, res.Dataset)
	ec.Put(ContextKeyInserted, int64(res.Inserted))
	ec.Put(ContextKeyQuarantined, int64(res.Quarantined))
	ec.Put(ContextKeyChunks, int64(res.Chunks))
	ec.Put(ContextKeyCreationDetails, int64(res.CreationDetails))

	if err != nil {
		return model.ExitStatusFailed, err
	}
	logger.Infof("Dataset [%s]: %d documents loaded, %d rows quarantined in %d chunk(s).",
		res.Dataset, res.Inserted, res.Quarantined, res.Chunks)
	return model.ExitStatusCompleted, nil
}

// Close is a no-op; the loader holds no per-step resources.
func (t *LoadTasklet) Close(ctx context.Context) error {
	return nil
}

var _ port.Tasklet = (*LoadTasklet)(nil)
