package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "embed"

	"go.uber.org/fx"

	"github.com/tigerroll/surfin-datasync/internal/app"
	config "github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// embeddedConfig is the application configuration; ${VAR:default} placeholders are expanded at load.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

func main() {
	envFile := flag.String("env", "", "path of the .env file (default: $ENV_FILE_PATH or .env)")
	runID := flag.Int64("run-id", 0, "run.id job parameter; 0 lets the incrementer choose one")
	once := flag.Bool("once", false, "run the job once even when a schedule is configured")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Attempting to stop the job...", sig)
		cancel()
	}()

	envFilePath := *envFile
	if envFilePath == "" {
		envFilePath = os.Getenv("ENV_FILE_PATH")
	}
	if envFilePath == "" {
		envFilePath = ".env"
	}

	fxApp := fx.New(app.GetApplicationOptions(ctx, envFilePath, config.EmbeddedConfig(embeddedConfig), app.RunOptions{
		RunID: *runID,
		Once:  *once,
	})...)
	fxApp.Run()
	if fxApp.Err() != nil {
		logger.Fatalf("Application run failed: %v", fxApp.Err())
	}
}
