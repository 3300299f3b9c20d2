package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// JobParameters is a structure holding parameters for job execution.
// Every parameter is identifying: all of them contribute to the job key.
type JobParameters struct {
	Params map[string]interface{}
}

// NewJobParameters creates a new instance of JobParameters.
func NewJobParameters() JobParameters {
	return JobParameters{
		Params: make(map[string]interface{}),
	}
}

// Put sets a value in JobParameters with the specified key and value.
func (jp JobParameters) Put(key string, value interface{}) {
	jp.Params[key] = value
}

// Get retrieves the value for the specified key. Returns nil if the value does not exist.
func (jp JobParameters) Get(key string) interface{} {
	val, ok := jp.Params[key]
	if !ok {
		return nil
	}
	return val
}

// GetString retrieves the value for the specified key as a string.
func (jp JobParameters) GetString(key string) (string, bool) {
	val, ok := jp.Params[key]
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// Names returns the parameter names in ascending order.
func (jp JobParameters) Names() []string {
	names := make([]string, 0, len(jp.Params))
	for k := range jp.Params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// IsEmpty reports whether there are no parameters.
func (jp JobParameters) IsEmpty() bool {
	return len(jp.Params) == 0
}

// String returns the string representation of JobParameters. Keys that look like secrets are masked.
func (jp JobParameters) String() string {
	masked := make(map[string]interface{}, len(jp.Params))
	for k, v := range jp.Params {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "password") || strings.Contains(lk, "token") || strings.Contains(lk, "secret") {
			masked[k] = "********"
			continue
		}
		masked[k] = v
	}
	data, err := json.Marshal(masked)
	if err != nil {
		return fmt.Sprintf("{[ERROR: Failed to marshal parameters: %v]}", err)
	}
	return string(data)
}

// JobInstance is a structure representing the logical execution unit of a job.
// ID and Version are zero until the instance has been stored.
type JobInstance struct {
	ID         int64
	JobName    string
	JobKey     string
	Parameters JobParameters
	Version    int
	CreateTime time.Time
}

// JobExecution is a structure representing a single execution instance of a job.
type JobExecution struct {
	ID               int64
	JobInstanceID    int64
	JobName          string
	Parameters       JobParameters
	Status           JobStatus
	ExitStatus       ExitStatus
	StartTime        *time.Time
	EndTime          *time.Time
	CreateTime       time.Time
	LastUpdated      time.Time
	Version          int
	ExecutionContext ExecutionContext
	StepExecutions   []*StepExecution
	Failures         []error
}

// StepExecution is a structure representing a single execution instance of a step.
type StepExecution struct {
	ID               int64
	StepName         string
	JobExecutionID   int64
	JobExecution     *JobExecution
	Status           JobStatus
	ExitStatus       ExitStatus
	StartTime        time.Time
	EndTime          *time.Time
	LastUpdated      time.Time
	Version          int
	ReadCount        int64
	WriteCount       int64
	FilterCount      int64
	CommitCount      int64
	RollbackCount    int64
	ReadSkipCount    int64
	ProcessSkipCount int64
	WriteSkipCount   int64
	ExecutionContext ExecutionContext
	Failures         []error
}

// CreationDetail records when a business key value was first and last seen by the loader.
type CreationDetail struct {
	Name       string    `bson:"name"`
	Value      string    `bson:"value"`
	Created    time.Time `bson:"created"`
	LastUpdate time.Time `bson:"lastUpdate"`
}

// NewJobInstance creates an unsaved JobInstance. The job key is assigned by the repository.
func NewJobInstance(jobName string, params JobParameters) *JobInstance {
	return &JobInstance{
		JobName:    jobName,
		Parameters: params,
		CreateTime: time.Now(),
	}
}

// NewJobExecution creates an unsaved JobExecution for instance in STARTING state.
func NewJobExecution(instance *JobInstance, params JobParameters) *JobExecution {
	now := time.Now()
	return &JobExecution{
		JobInstanceID:    instance.ID,
		JobName:          instance.JobName,
		Parameters:       params,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		CreateTime:       now,
		LastUpdated:      now,
		ExecutionContext: NewExecutionContext(),
		StepExecutions:   make([]*StepExecution, 0),
	}
}

// IncrementVersion is called after a successful conditional update.
func (je *JobExecution) IncrementVersion() {
	je.Version++
}

// UpgradeStatus moves the status towards s without moving it backwards.
func (je *JobExecution) UpgradeStatus(s JobStatus) {
	je.Status = je.Status.UpgradeTo(s)
}

// IsRunning reports whether the execution has started and not yet ended.
func (je *JobExecution) IsRunning() bool {
	return je.StartTime != nil && je.EndTime == nil
}

// MarkAsStarted updates the JobExecution status to STARTED.
func (je *JobExecution) MarkAsStarted() {
	now := time.Now()
	je.Status = BatchStatusStarted
	je.ExitStatus = ExitStatusExecuting
	je.StartTime = &now
	je.LastUpdated = now
}

// MarkAsCompleted updates the JobExecution status to COMPLETED.
func (je *JobExecution) MarkAsCompleted() {
	je.finish(BatchStatusCompleted, ExitStatusCompleted)
}

// MarkAsFailed updates the JobExecution status to FAILED and adds error information.
func (je *JobExecution) MarkAsFailed(err error) {
	je.finish(BatchStatusFailed, ExitStatusFailed)
	if err != nil {
		je.AddFailureException(err)
	}
}

// Finish ends the execution with the given status, keeping the exit description of es.
func (je *JobExecution) Finish(status JobStatus, es ExitStatus) {
	je.finish(status, es)
}

func (je *JobExecution) finish(status JobStatus, es ExitStatus) {
	now := time.Now()
	je.Status = status
	je.ExitStatus = es
	je.EndTime = &now
	je.LastUpdated = now
}

// AddFailureException adds error information to JobExecution. It avoids adding duplicate errors.
func (je *JobExecution) AddFailureException(err error) {
	if err == nil {
		return
	}
	errMsg := exception.ExtractErrorMessage(err)
	for _, existing := range je.Failures {
		if exception.ExtractErrorMessage(existing) == errMsg {
			logger.Debugf("Skipped adding duplicate error '%s' to JobExecution (ID: %d).", errMsg, je.ID)
			return
		}
	}
	je.Failures = append(je.Failures, err)
	je.LastUpdated = time.Now()
}

// AddStepExecution adds a StepExecution to JobExecution.
func (je *JobExecution) AddStepExecution(se *StepExecution) {
	se.JobExecution = je
	se.JobExecutionID = je.ID
	je.StepExecutions = append(je.StepExecutions, se)
}

// CreateStepExecution creates a new unsaved step execution attached to je.
func (je *JobExecution) CreateStepExecution(stepName string) *StepExecution {
	se := NewStepExecution(stepName, je)
	je.StepExecutions = append(je.StepExecutions, se)
	return se
}

// NewStepExecution creates a new instance of StepExecution.
func NewStepExecution(stepName string, jobExecution *JobExecution) *StepExecution {
	now := time.Now()
	se := &StepExecution{
		StepName:         stepName,
		JobExecution:     jobExecution,
		StartTime:        now,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusExecuting,
		ExecutionContext: NewExecutionContext(),
		LastUpdated:      now,
	}
	if jobExecution != nil {
		se.JobExecutionID = jobExecution.ID
	}
	return se
}

// IncrementVersion is called after a successful conditional update.
func (se *StepExecution) IncrementVersion() {
	se.Version++
}

// MarkAsStarted updates the StepExecution status to STARTED.
func (se *StepExecution) MarkAsStarted() {
	se.Status = BatchStatusStarted
	se.LastUpdated = time.Now()
}

// MarkAsCompleted updates the StepExecution status to COMPLETED.
func (se *StepExecution) MarkAsCompleted() {
	now := time.Now()
	se.Status = BatchStatusCompleted
	se.ExitStatus = ExitStatusCompleted.AddExitDescription(se.ExitStatus.ExitDescription)
	se.EndTime = &now
	se.LastUpdated = now
}

// MarkAsFailed updates the StepExecution status to FAILED and adds error information.
func (se *StepExecution) MarkAsFailed(err error) {
	now := time.Now()
	se.Status = BatchStatusFailed
	se.ExitStatus = ExitStatusFailed
	if err != nil {
		se.ExitStatus = se.ExitStatus.AddExitDescription(exception.ExtractErrorMessage(err))
		se.AddFailureException(err)
	}
	se.EndTime = &now
	se.LastUpdated = now
}

// AddFailureException adds error information to StepExecution. It avoids adding duplicate errors.
func (se *StepExecution) AddFailureException(err error) {
	if err == nil {
		return
	}
	errMsg := exception.ExtractErrorMessage(err)
	for _, existing := range se.Failures {
		if exception.ExtractErrorMessage(existing) == errMsg {
			return
		}
	}
	se.Failures = append(se.Failures, err)
	se.LastUpdated = time.Now()
}

// DebugString returns a debug string representation of StepExecution, excluding ExecutionContext details.
func (se *StepExecution) DebugString() string {
	endTimeStr := "nil"
	if se.EndTime != nil {
		endTimeStr = se.EndTime.Format(time.RFC3339Nano)
	}
	return fmt.Sprintf(
		"&{ID:%d StepName:%s JobExecutionID:%d StartTime:%s EndTime:%s Status:%s ExitStatus:%s Read:%d Write:%d Filter:%d Commit:%d ReadSkip:%d WriteSkip:%d Version:%d}",
		se.ID, se.StepName, se.JobExecutionID, se.StartTime.Format(time.RFC3339Nano), endTimeStr,
		se.Status, se.ExitStatus, se.ReadCount, se.WriteCount, se.FilterCount, se.CommitCount,
		se.ReadSkipCount, se.WriteSkipCount, se.Version,
	)
}
