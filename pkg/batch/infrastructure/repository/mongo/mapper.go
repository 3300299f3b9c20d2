package mongo

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
)

func encodeParameters(params model.JobParameters) bson.M {
	doc := bson.M{}
	for k, v := range params.Params {
		doc[escapeKey(k)] = v
	}
	return doc
}

func decodeParameters(doc bson.M) model.JobParameters {
	params := model.NewJobParameters()
	for k, v := range doc {
		params.Put(unescapeKey(k), normalizeValue(v))
	}
	return params
}

func fromDomainJobInstance(ji *model.JobInstance) *jobInstanceDocument {
	return &jobInstanceDocument{
		JobInstanceID: ji.ID,
		JobName:       ji.JobName,
		JobKey:        ji.JobKey,
		Version:       ji.Version,
		JobParameters: encodeParameters(ji.Parameters),
		CreateTime:    ji.CreateTime,
	}
}

func toDomainJobInstance(doc *jobInstanceDocument) *model.JobInstance {
	return &model.JobInstance{
		ID:         doc.JobInstanceID,
		JobName:    doc.JobName,
		JobKey:     doc.JobKey,
		Version:    doc.Version,
		Parameters: decodeParameters(doc.JobParameters),
		CreateTime: doc.CreateTime,
	}
}

func fromDomainJobExecution(je *model.JobExecution) *jobExecutionDocument {
	return &jobExecutionDocument{
		JobExecutionID: je.ID,
		JobInstanceID:  je.JobInstanceID,
		JobName:        je.JobName,
		JobParameters:  encodeParameters(je.Parameters),
		StartTime:      je.StartTime,
		EndTime:        je.EndTime,
		Status:         je.Status.String(),
		ExitCode:       je.ExitStatus.ExitCode,
		ExitMessage:    je.ExitStatus.ExitDescription,
		CreateTime:     je.CreateTime,
		LastUpdated:    je.LastUpdated,
		Version:        je.Version,
	}
}

func toDomainJobExecution(doc *jobExecutionDocument) *model.JobExecution {
	return &model.JobExecution{
		ID:            doc.JobExecutionID,
		JobInstanceID: doc.JobInstanceID,
		JobName:       doc.JobName,
		Parameters:    decodeParameters(doc.JobParameters),
		Status:        model.ParseJobStatus(doc.Status),
		ExitStatus: model.ExitStatus{
			ExitCode:        doc.ExitCode,
			ExitDescription: doc.ExitMessage,
		},
		StartTime:        doc.StartTime,
		EndTime:          doc.EndTime,
		CreateTime:       doc.CreateTime,
		LastUpdated:      doc.LastUpdated,
		Version:          doc.Version,
		ExecutionContext: model.NewExecutionContext(),
		// Step executions are attached by the repository on demand.
		StepExecutions: make([]*model.StepExecution, 0),
	}
}

func fromDomainStepExecution(se *model.StepExecution) *stepExecutionDocument {
	jobExecutionID := se.JobExecutionID
	if se.JobExecution != nil {
		jobExecutionID = se.JobExecution.ID
	}
	return &stepExecutionDocument{
		StepExecutionID:  se.ID,
		StepName:         se.StepName,
		JobExecutionID:   jobExecutionID,
		StartTime:        se.StartTime,
		EndTime:          se.EndTime,
		Status:           se.Status.String(),
		ExitCode:         se.ExitStatus.ExitCode,
		ExitMessage:      se.ExitStatus.ExitDescription,
		ReadCount:        se.ReadCount,
		WriteCount:       se.WriteCount,
		FilterCount:      se.FilterCount,
		CommitCount:      se.CommitCount,
		RollbackCount:    se.RollbackCount,
		ReadSkipCount:    se.ReadSkipCount,
		ProcessSkipCount: se.ProcessSkipCount,
		WriteSkipCount:   se.WriteSkipCount,
		LastUpdated:      se.LastUpdated,
		Version:          se.Version,
	}
}

func toDomainStepExecution(doc *stepExecutionDocument, jobExecution *model.JobExecution) *model.StepExecution {
	return &model.StepExecution{
		ID:             doc.StepExecutionID,
		StepName:       doc.StepName,
		JobExecutionID: doc.JobExecutionID,
		JobExecution:   jobExecution,
		Status:         model.ParseJobStatus(doc.Status),
		ExitStatus: model.ExitStatus{
			ExitCode:        doc.ExitCode,
			ExitDescription: doc.ExitMessage,
		},
		StartTime:        doc.StartTime,
		EndTime:          doc.EndTime,
		LastUpdated:      doc.LastUpdated,
		Version:          doc.Version,
		ReadCount:        doc.ReadCount,
		WriteCount:       doc.WriteCount,
		FilterCount:      doc.FilterCount,
		CommitCount:      doc.CommitCount,
		RollbackCount:    doc.RollbackCount,
		ReadSkipCount:    doc.ReadSkipCount,
		ProcessSkipCount: doc.ProcessSkipCount,
		WriteSkipCount:   doc.WriteSkipCount,
		ExecutionContext: model.NewExecutionContext(),
	}
}
