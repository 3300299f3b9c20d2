package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Collection names.
const (
	CollectionJobInstance      = "JobInstance"
	CollectionJobExecution     = "JobExecution"
	CollectionStepExecution    = "StepExecution"
	CollectionExecutionContext = "ExecutionContext"
	CollectionSequences        = "Sequences"
)

// Field names shared by several documents.
const (
	fieldID              = "_id"
	fieldNamespace       = "_ns"
	fieldVersion         = "version"
	fieldJobInstanceID   = "jobInstanceId"
	fieldJobExecutionID  = "jobExecutionId"
	fieldStepExecutionID = "stepExecutionId"
	fieldJobName         = "jobName"
	fieldJobKey          = "jobKey"
	fieldCreateTime      = "createTime"
	fieldEndTime         = "endTime"
	fieldStepName        = "stepName"
	fieldSequenceName    = "name"
	fieldSequenceValue   = "value"
)

// jobInstanceDocument is the persisted form of model.JobInstance.
type jobInstanceDocument struct {
	JobInstanceID int64     `bson:"jobInstanceId"`
	JobName       string    `bson:"jobName"`
	JobKey        string    `bson:"jobKey"`
	Version       int       `bson:"version"`
	JobParameters bson.M    `bson:"jobParameters"`
	CreateTime    time.Time `bson:"createTime"`
}

// jobExecutionDocument is the persisted form of model.JobExecution.
// EndTime is stored as null while the execution runs.
type jobExecutionDocument struct {
	JobExecutionID int64      `bson:"jobExecutionId"`
	JobInstanceID  int64      `bson:"jobInstanceId"`
	JobName        string     `bson:"jobName"`
	JobParameters  bson.M     `bson:"jobParameters"`
	StartTime      *time.Time `bson:"startTime"`
	EndTime        *time.Time `bson:"endTime"`
	Status         string     `bson:"status"`
	ExitCode       string     `bson:"exitCode"`
	ExitMessage    string     `bson:"exitMessage"`
	CreateTime     time.Time  `bson:"createTime"`
	LastUpdated    time.Time  `bson:"lastUpdated"`
	Version        int        `bson:"version"`
}

// stepExecutionDocument is the persisted form of model.StepExecution.
type stepExecutionDocument struct {
	StepExecutionID  int64      `bson:"stepExecutionId"`
	StepName         string     `bson:"stepName"`
	JobExecutionID   int64      `bson:"jobExecutionId"`
	StartTime        time.Time  `bson:"startTime"`
	EndTime          *time.Time `bson:"endTime"`
	Status           string     `bson:"status"`
	ExitCode         string     `bson:"exitCode"`
	ExitMessage      string     `bson:"exitMessage"`
	ReadCount        int64      `bson:"readCount"`
	WriteCount       int64      `bson:"writeCount"`
	FilterCount      int64      `bson:"filterCount"`
	CommitCount      int64      `bson:"commitCount"`
	RollbackCount    int64      `bson:"rollbackCount"`
	ReadSkipCount    int64      `bson:"readSkipCount"`
	ProcessSkipCount int64      `bson:"processSkipCount"`
	WriteSkipCount   int64      `bson:"writeSkipCount"`
	LastUpdated      time.Time  `bson:"lastUpdated"`
	Version          int        `bson:"version"`
}

type sequenceDocument struct {
	Name  string `bson:"name"`
	Value int64  `bson:"value"`
}
