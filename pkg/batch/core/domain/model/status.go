package model

import "strings"

// JobStatus represents the state of a job or step execution.
type JobStatus string

const (
	BatchStatusCompleted JobStatus = "COMPLETED"
	BatchStatusStarting  JobStatus = "STARTING"
	BatchStatusStarted   JobStatus = "STARTED"
	BatchStatusStopping  JobStatus = "STOPPING"
	BatchStatusStopped   JobStatus = "STOPPED"
	BatchStatusFailed    JobStatus = "FAILED"
	BatchStatusAbandoned JobStatus = "ABANDONED"
	BatchStatusUnknown   JobStatus = "UNKNOWN"
)

// statusOrder ranks statuses for upgrades. Higher values win once past STARTED.
var statusOrder = map[JobStatus]int{
	BatchStatusCompleted: 0,
	BatchStatusStarting:  1,
	BatchStatusStarted:   2,
	BatchStatusStopping:  3,
	BatchStatusStopped:   4,
	BatchStatusFailed:    5,
	BatchStatusAbandoned: 6,
	BatchStatusUnknown:   7,
}

// ParseJobStatus converts a persisted status string. Unrecognised values map to UNKNOWN.
func ParseJobStatus(s string) JobStatus {
	st := JobStatus(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := statusOrder[st]; ok {
		return st
	}
	return BatchStatusUnknown
}

// String returns the string representation of the JobStatus.
func (s JobStatus) String() string {
	return string(s)
}

func (s JobStatus) rank() int {
	if r, ok := statusOrder[s]; ok {
		return r
	}
	return statusOrder[BatchStatusUnknown]
}

// IsRunning reports whether the status is STARTING, STARTED or STOPPING.
func (s JobStatus) IsRunning() bool {
	return s == BatchStatusStarting || s == BatchStatusStarted || s == BatchStatusStopping
}

// IsUnsuccessful reports whether the status is FAILED or worse.
func (s JobStatus) IsUnsuccessful() bool {
	return s.rank() >= statusOrder[BatchStatusFailed]
}

// IsFinished checks if the JobStatus represents a finished state.
func (s JobStatus) IsFinished() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusStopped, BatchStatusAbandoned:
		return true
	default:
		return false
	}
}

// UpgradeTo returns the status that results from moving s towards other without ever
// moving backwards. Once either side is past STARTED the higher one wins; below that,
// COMPLETED wins over STARTING/STARTED.
func (s JobStatus) UpgradeTo(other JobStatus) JobStatus {
	started := statusOrder[BatchStatusStarted]
	if s.rank() > started || other.rank() > started {
		return maxStatus(s, other)
	}
	if s == BatchStatusCompleted || other == BatchStatusCompleted {
		return BatchStatusCompleted
	}
	return maxStatus(s, other)
}

func maxStatus(a, b JobStatus) JobStatus {
	if a.rank() >= b.rank() {
		return a
	}
	return b
}

// ToExitStatus converts the JobStatus to its corresponding ExitStatus.
func (s JobStatus) ToExitStatus() ExitStatus {
	switch s {
	case BatchStatusCompleted:
		return ExitStatusCompleted
	case BatchStatusFailed:
		return ExitStatusFailed
	case BatchStatusStopped:
		return ExitStatusStopped
	case BatchStatusStarting, BatchStatusStarted, BatchStatusStopping:
		return ExitStatusExecuting
	default:
		return ExitStatusUnknown
	}
}

// Canonical exit codes.
const (
	ExitCodeUnknown   = "UNKNOWN"
	ExitCodeExecuting = "EXECUTING"
	ExitCodeCompleted = "COMPLETED"
	ExitCodeNoOp      = "NOOP"
	ExitCodeFailed    = "FAILED"
	ExitCodeStopped   = "STOPPED"
)

// ExitStatus is the outcome code of a job or step plus a free-form description.
type ExitStatus struct {
	ExitCode        string
	ExitDescription string
}

var (
	ExitStatusUnknown   = ExitStatus{ExitCode: ExitCodeUnknown}
	ExitStatusExecuting = ExitStatus{ExitCode: ExitCodeExecuting}
	ExitStatusCompleted = ExitStatus{ExitCode: ExitCodeCompleted}
	ExitStatusNoOp      = ExitStatus{ExitCode: ExitCodeNoOp}
	ExitStatusFailed    = ExitStatus{ExitCode: ExitCodeFailed}
	ExitStatusStopped   = ExitStatus{ExitCode: ExitCodeStopped}
)

// String returns the exit code.
func (e ExitStatus) String() string {
	return e.ExitCode
}

// IsCompleted reports whether the exit code is COMPLETED. The description is ignored.
func (e ExitStatus) IsCompleted() bool {
	return e.ExitCode == ExitCodeCompleted
}

// AddExitDescription returns a copy with description appended to the existing one.
func (e ExitStatus) AddExitDescription(description string) ExitStatus {
	if description == "" {
		return e
	}
	if e.ExitDescription == "" || e.ExitDescription == description {
		return ExitStatus{ExitCode: e.ExitCode, ExitDescription: description}
	}
	return ExitStatus{ExitCode: e.ExitCode, ExitDescription: e.ExitDescription + "; " + description}
}

func (e ExitStatus) severity() int {
	switch e.ExitCode {
	case ExitCodeExecuting:
		return 1
	case ExitCodeCompleted:
		return 2
	case ExitCodeNoOp:
		return 3
	case ExitCodeStopped:
		return 4
	case ExitCodeFailed:
		return 5
	case ExitCodeUnknown:
		return 6
	default:
		return 7
	}
}

// And combines two exit statuses; the more severe code wins and descriptions are concatenated.
func (e ExitStatus) And(other ExitStatus) ExitStatus {
	result := e
	if other.severity() > e.severity() {
		result = ExitStatus{ExitCode: other.ExitCode, ExitDescription: e.ExitDescription}
	}
	return result.AddExitDescription(other.ExitDescription)
}
