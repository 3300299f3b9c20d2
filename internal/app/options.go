package app

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/surfin-datasync/pkg/batch/adapter/mongodb"
	"github.com/tigerroll/surfin-datasync/pkg/batch/adapter/source"
	storage "github.com/tigerroll/surfin-datasync/pkg/batch/adapter/storage"
	gcsStorage "github.com/tigerroll/surfin-datasync/pkg/batch/adapter/storage/gcs"
	localStorage "github.com/tigerroll/surfin-datasync/pkg/batch/adapter/storage/local"
	minioStorage "github.com/tigerroll/surfin-datasync/pkg/batch/adapter/storage/minio"
	"github.com/tigerroll/surfin-datasync/pkg/batch/component/loader"
	usecase "github.com/tigerroll/surfin-datasync/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
	support "github.com/tigerroll/surfin-datasync/pkg/batch/core/config/support"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/job/decision"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/job/runner"
	infraMetrics "github.com/tigerroll/surfin-datasync/pkg/batch/infrastructure/metrics"
	inmemoryRepo "github.com/tigerroll/surfin-datasync/pkg/batch/infrastructure/repository/inmemory"
	mongoRepo "github.com/tigerroll/surfin-datasync/pkg/batch/infrastructure/repository/mongo"
	batchlistener "github.com/tigerroll/surfin-datasync/pkg/batch/listener"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// GetApplicationOptions builds the fx options of the datasync application.
func GetApplicationOptions(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, runOpts RunOptions) []fx.Option {
	cfg, err := config.LoadConfig(envFilePath, embeddedConfig)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	logger.SetLogLevel(cfg.Surfin.System.Logging.Level)

	var options []fx.Option

	options = append(options, fx.Supply(
		embeddedConfig,
		fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
		fx.Annotate(appCtx, fx.As(new(context.Context)), fx.ResultTags(`name:"appCtx"`)),
		runOpts,
	))
	options = append(options, logger.Module)
	options = append(options, config.Module)
	options = append(options, mongodb.Module)
	options = append(options, repositoryModule(cfg.Surfin.Infrastructure.JobRepository))
	options = append(options, infraMetrics.Module)
	options = append(options, batchlistener.Module)
	options = append(options, decision.Module)
	options = append(options, runner.Module)
	options = append(options, support.Module)
	options = append(options, usecase.Module)
	options = append(options, storage.Module, localStorage.Module, gcsStorage.Module, minioStorage.Module)
	options = append(options, source.Module)
	options = append(options, loader.Module)
	options = append(options, fx.Provide(
		fx.Annotate(NewSyncJobRegistration, fx.ResultTags(`group:"jobs"`)),
		NewRunner,
	))
	options = append(options, fx.Invoke(startJobExecution))

	return options
}

func repositoryModule(kind string) fx.Option {
	if kind == config.RepositoryInMemory {
		logger.Warnf("Using the in-memory job repository; execution metadata is lost on exit.")
		return inmemoryRepo.Module
	}
	return mongoRepo.Module
}

// startParams are the dependencies of startJobExecution.
type startParams struct {
	fx.In
	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Runner     *Runner
	Config     *config.Config
	AppCtx     context.Context `name:"appCtx"`
	RunOptions RunOptions
}

// startJobExecution runs the job once and shuts the application down afterwards, or, with a
// schedule configured, keeps the application alive and runs it on every cron tick.
func startJobExecution(p startParams) error {
	schedule := p.Config.Surfin.Batch.Schedule
	if schedule != "" && !p.RunOptions.Once {
		scheduler, err := NewScheduler(schedule, p.Runner)
		if err != nil {
			return err
		}
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				scheduler.Start(p.AppCtx)
				go func() {
					<-p.AppCtx.Done()
					if err := p.Shutdowner.Shutdown(); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				logger.Infof("Application is shutting down; waiting for a running job.")
				return scheduler.Stop(ctx)
			},
		})
		return nil
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				exitCode := 0
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in job execution: %v", r)
						exitCode = 1
					}
					logger.Infof("Requesting application shutdown after job completion.")
					if err := p.Shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()

				if _, err := p.Runner.RunOnce(p.AppCtx, p.RunOptions.RunID); err != nil {
					logger.Errorf("Job '%s' did not complete: %v", p.Config.Surfin.Batch.JobName, err)
					exitCode = 1
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Infof("Application is shutting down.")
			return nil
		},
	})
	return nil
}
