package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	port "github.com/tigerroll/surfin-datasync/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// Notifier announces the outcome of a finished job execution.
type Notifier interface {
	NotifyJobCompletion(ctx context.Context, execution *model.JobExecution)
}

// LogNotifier writes a one-line run summary to the log, at WARN when the run did not complete.
type LogNotifier struct{}

// NewLogNotifier creates a new instance of LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Summary renders the run summary of execution.
func Summary(execution *model.JobExecution) string {
	duration := time.Duration(0)
	if execution.StartTime != nil && execution.EndTime != nil {
		duration = execution.EndTime.Sub(*execution.StartTime)
	}

	steps := make([]string, 0, len(execution.StepExecutions))
	for _, se := range execution.StepExecutions {
		steps = append(steps, fmt.Sprintf("%s=%s", se.StepName, se.ExitStatus.ExitCode))
	}

	return fmt.Sprintf(
		"Job '%s' (ID: %d) finished with Status: %s, ExitStatus: %s. Duration: %s, Failures: %d, Steps: [%s]",
		execution.JobName,
		execution.ID,
		execution.Status,
		execution.ExitStatus,
		duration.Round(time.Millisecond),
		len(execution.Failures),
		strings.Join(steps, ", "),
	)
}

// NotifyJobCompletion notifies of job completion.
func (n *LogNotifier) NotifyJobCompletion(ctx context.Context, execution *model.JobExecution) {
	message := Summary(execution)
	if execution.Status == model.BatchStatusCompleted {
		logger.Infof("Job Notification: %s", message)
	} else {
		logger.Warnf("Job Notification: %s", message)
	}
}

var _ Notifier = (*LogNotifier)(nil)

// NotificationListener adapts a Notifier to port.JobExecutionListener.
type NotificationListener struct {
	notifier Notifier
}

// NewNotificationListener creates a listener that notifies after each job.
func NewNotificationListener(notifier Notifier) *NotificationListener {
	return &NotificationListener{notifier: notifier}
}

// BeforeJob exists to satisfy JobExecutionListener requirements but does nothing.
func (l *NotificationListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {}

// AfterJob calls the Notifier.
func (l *NotificationListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	l.notifier.NotifyJobCompletion(ctx, jobExecution)
}

var _ port.JobExecutionListener = (*NotificationListener)(nil)
