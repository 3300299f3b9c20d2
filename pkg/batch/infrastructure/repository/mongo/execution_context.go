package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
)

// GetJobExecutionContext returns the stored job context, empty when none was saved.
func (r *MongoJobRepository) GetJobExecutionContext(ctx context.Context, jobExecution *model.JobExecution) (model.ExecutionContext, error) {
	const op = "MongoJobRepository.GetJobExecutionContext"
	if jobExecution == nil {
		return nil, exception.NewValidationError(op, "JobExecution cannot be nil")
	}
	return r.getExecutionContext(ctx, op, fieldJobExecutionID, jobExecution.ID)
}

// GetStepExecutionContext returns the stored step context, empty when none was saved.
func (r *MongoJobRepository) GetStepExecutionContext(ctx context.Context, stepExecution *model.StepExecution) (model.ExecutionContext, error) {
	const op = "MongoJobRepository.GetStepExecutionContext"
	if stepExecution == nil {
		return nil, exception.NewValidationError(op, "StepExecution cannot be nil")
	}
	return r.getExecutionContext(ctx, op, fieldStepExecutionID, stepExecution.ID)
}

// SaveJobExecutionContext replaces the stored context of jobExecution.
func (r *MongoJobRepository) SaveJobExecutionContext(ctx context.Context, jobExecution *model.JobExecution) error {
	const op = "MongoJobRepository.SaveJobExecutionContext"
	if jobExecution == nil || jobExecution.ID == 0 {
		return exception.NewValidationError(op, "JobExecution must have an id")
	}
	return r.saveExecutionContext(ctx, op, fieldJobExecutionID, jobExecution.ID, jobExecution.ExecutionContext)
}

// SaveStepExecutionContext replaces the stored context of stepExecution.
func (r *MongoJobRepository) SaveStepExecutionContext(ctx context.Context, stepExecution *model.StepExecution) error {
	const op = "MongoJobRepository.SaveStepExecutionContext"
	if stepExecution == nil || stepExecution.ID == 0 {
		return exception.NewValidationError(op, "StepExecution must have an id")
	}
	return r.saveExecutionContext(ctx, op, fieldStepExecutionID, stepExecution.ID, stepExecution.ExecutionContext)
}

// UpdateJobExecutionContext is the same full replace as SaveJobExecutionContext.
func (r *MongoJobRepository) UpdateJobExecutionContext(ctx context.Context, jobExecution *model.JobExecution) error {
	return r.SaveJobExecutionContext(ctx, jobExecution)
}

// UpdateStepExecutionContext is the same full replace as SaveStepExecutionContext.
func (r *MongoJobRepository) UpdateStepExecutionContext(ctx context.Context, stepExecution *model.StepExecution) error {
	return r.SaveStepExecutionContext(ctx, stepExecution)
}

// SaveExecutionContexts saves the context of each step and of its owning job execution.
func (r *MongoJobRepository) SaveExecutionContexts(ctx context.Context, stepExecutions []*model.StepExecution) error {
	const op = "MongoJobRepository.SaveExecutionContexts"
	if stepExecutions == nil {
		return exception.NewValidationError(op, "Attempt to save a nil collection of step executions")
	}
	for _, se := range stepExecutions {
		if err := r.SaveStepExecutionContext(ctx, se); err != nil {
			return err
		}
		if se.JobExecution != nil {
			if err := r.SaveJobExecutionContext(ctx, se.JobExecution); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *MongoJobRepository) getExecutionContext(ctx context.Context, op, idField string, id int64) (model.ExecutionContext, error) {
	var doc bson.M
	err := r.collection(CollectionExecutionContext).FindOne(ctx, bson.D{{Key: idField, Value: id}}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return model.NewExecutionContext(), nil
	}
	if err != nil {
		return nil, storeError(op, fmt.Sprintf("failed to find ExecutionContext (%s: %d)", idField, id), err)
	}
	return decodeContext(idField, doc), nil
}

func (r *MongoJobRepository) saveExecutionContext(ctx context.Context, op, idField string, id int64, ec model.ExecutionContext) error {
	_, err := r.collection(CollectionExecutionContext).ReplaceOne(ctx,
		bson.D{{Key: idField, Value: id}}, encodeContext(idField, id, ec), options.Replace().SetUpsert(true))
	if err != nil {
		return storeError(op, fmt.Sprintf("failed to save ExecutionContext (%s: %d)", idField, id), err)
	}
	return nil
}
