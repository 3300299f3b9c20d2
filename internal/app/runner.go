package app

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/robfig/cron/v3"

	usecase "github.com/tigerroll/surfin-datasync/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	incrementer "github.com/tigerroll/surfin-datasync/pkg/batch/core/support/incrementer"
	exception "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// RunOptions are the command line choices that shape a launch.
type RunOptions struct {
	// RunID is used as run.id when non-zero; otherwise the incrementer picks one.
	RunID int64
	// Once ignores a configured schedule.
	Once bool
}

// Runner launches the sync job and removes the csv directory afterwards.
type Runner struct {
	launcher  usecase.JobLauncher
	jobName   string
	csvDir    string
	removeAll func(string) error
}

// NewRunner creates a Runner for the configured job.
func NewRunner(launcher usecase.JobLauncher, cfg *config.Config) *Runner {
	return &Runner{
		launcher:  launcher,
		jobName:   cfg.Surfin.Batch.JobName,
		csvDir:    cfg.Surfin.Loader.CSVDirectory,
		removeAll: os.RemoveAll,
	}
}

// RunOnce launches one execution of the job. The error aggregates launch failures, an
// unsuccessful final status and a failed csv directory cleanup.
func (r *Runner) RunOnce(ctx context.Context, runID int64) (*model.JobExecution, error) {
	const op = "Runner.RunOnce"

	params := model.NewJobParameters()
	if runID != 0 {
		params.Put(incrementer.DefaultRunIDName, runID)
	}

	var result *multierror.Error
	je, err := r.launcher.Launch(ctx, r.jobName, params)
	if err != nil {
		result = multierror.Append(result, err)
	}
	if je != nil {
		logger.Infof("Job '%s' (Execution ID: %d) finished with status %s, exit code %s.",
			r.jobName, je.ID, je.Status, je.ExitStatus.ExitCode)
		if err == nil && je.Status.IsUnsuccessful() {
			result = multierror.Append(result, exception.NewBatchError(op,
				fmt.Sprintf("job '%s' finished with status %s: %s", r.jobName, je.Status, je.ExitStatus.ExitDescription), nil, false, false))
		}
	}

	if r.csvDir != "" {
		logger.Debugf("Deleting csv directory [%s].", r.csvDir)
		if err := r.removeAll(r.csvDir); err != nil {
			result = multierror.Append(result, exception.NewBatchError(op,
				fmt.Sprintf("failed to delete csv directory [%s]", r.csvDir), err, false, false))
		}
	}
	return je, result.ErrorOrNil()
}

// Scheduler launches the job on a cron schedule. A run still in progress when the next one
// is due makes the scheduler skip that tick.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	spec   string

	mu     sync.Mutex
	runCtx context.Context
}

// NewScheduler parses spec as a standard five-field cron expression.
func NewScheduler(spec string, r *Runner) (*Scheduler, error) {
	const op = "NewScheduler"
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, exception.NewValidationError(op, fmt.Sprintf("invalid schedule '%s': %v", spec, err))
	}
	l := cronLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.Local),
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		runner: r,
		spec:   spec,
		runCtx: context.Background(),
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, exception.NewValidationError(op, fmt.Sprintf("invalid schedule '%s': %v", spec, err))
	}
	return s, nil
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if _, err := s.runner.RunOnce(ctx, 0); err != nil {
		logger.Errorf("Scheduled run of job '%s' failed: %v", s.runner.jobName, err)
	}
}

// Start begins firing; runs use ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		logger.Infof("Job '%s' scheduled with '%s'; next run at %s.", s.runner.jobName, s.spec, e.Next.Format(time.RFC3339))
	}
}

// Stop stops firing and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes cron's own logging to the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debugf("cron: %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Errorf("cron: %s %v: %v", msg, keysAndValues, err)
}
