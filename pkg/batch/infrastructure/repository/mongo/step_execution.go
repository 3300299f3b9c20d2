package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/repository"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
)

func stepExecutionFilter(id int64) bson.D {
	return bson.D{{Key: fieldStepExecutionID, Value: id}}
}

// SaveStepExecution persists a new StepExecution with a fresh id and version 1.
func (r *MongoJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	const op = "MongoJobRepository.SaveStepExecution"
	if err := repository.ValidateStepExecutionForSave(op, stepExecution); err != nil {
		return err
	}

	id, err := r.nextID(ctx, repository.SequenceStepExecution)
	if err != nil {
		return err
	}
	stepExecution.ID = id
	stepExecution.Version = 1
	if stepExecution.JobExecution != nil {
		stepExecution.JobExecutionID = stepExecution.JobExecution.ID
	}

	_, err = r.collection(CollectionStepExecution).ReplaceOne(ctx,
		stepExecutionFilter(id), fromDomainStepExecution(stepExecution), options.Replace().SetUpsert(true))
	if err != nil {
		return storeError(op, fmt.Sprintf("failed to save StepExecution (ID: %d)", id), err)
	}
	return nil
}

// SaveStepExecutions saves each of stepExecutions in order.
func (r *MongoJobRepository) SaveStepExecutions(ctx context.Context, stepExecutions []*model.StepExecution) error {
	const op = "MongoJobRepository.SaveStepExecutions"
	if stepExecutions == nil {
		return exception.NewValidationError(op, "Attempt to save a nil collection of step executions")
	}
	for _, se := range stepExecutions {
		if err := r.SaveStepExecution(ctx, se); err != nil {
			return err
		}
	}
	return nil
}

// UpdateStepExecution replaces the row if its version still matches, then increments the version.
func (r *MongoJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	const op = "MongoJobRepository.UpdateStepExecution"
	if err := repository.ValidateStepExecutionForUpdate(op, stepExecution); err != nil {
		return err
	}

	coll := r.collection(CollectionStepExecution)
	n, err := coll.CountDocuments(ctx, stepExecutionFilter(stepExecution.ID))
	if err != nil {
		return storeError(op, fmt.Sprintf("failed to look up StepExecution (ID: %d)", stepExecution.ID), err)
	}
	if n == 0 {
		return exception.NewNotFoundError(op, fmt.Sprintf("Invalid StepExecution, ID %d not found.", stepExecution.ID))
	}

	doc := fromDomainStepExecution(stepExecution)
	doc.Version = stepExecution.Version + 1
	res, err := coll.ReplaceOne(ctx,
		bson.D{{Key: fieldStepExecutionID, Value: stepExecution.ID}, {Key: fieldVersion, Value: stepExecution.Version}},
		doc)
	if err != nil {
		return storeError(op, fmt.Sprintf("failed to update StepExecution (ID: %d)", stepExecution.ID), err)
	}
	if res.MatchedCount == 0 {
		return exception.NewOptimisticLockingFailureException(op,
			fmt.Sprintf("StepExecution (ID: %d) with version %d was updated by another process", stepExecution.ID, stepExecution.Version), nil)
	}
	stepExecution.IncrementVersion()
	return nil
}

// GetStepExecution finds a step execution of jobExecution by id, or nil.
func (r *MongoJobRepository) GetStepExecution(ctx context.Context, jobExecution *model.JobExecution, stepExecutionID int64) (*model.StepExecution, error) {
	const op = "MongoJobRepository.GetStepExecution"
	if jobExecution == nil {
		return nil, exception.NewValidationError(op, "JobExecution cannot be nil")
	}
	var doc stepExecutionDocument
	err := r.collection(CollectionStepExecution).FindOne(ctx, bson.D{
		{Key: fieldStepExecutionID, Value: stepExecutionID},
		{Key: fieldJobExecutionID, Value: jobExecution.ID},
	}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(op, fmt.Sprintf("failed to find StepExecution (ID: %d)", stepExecutionID), err)
	}
	return toDomainStepExecution(&doc, jobExecution), nil
}

// AddStepExecutions loads all step executions of jobExecution, ascending by id, and attaches them.
func (r *MongoJobRepository) AddStepExecutions(ctx context.Context, jobExecution *model.JobExecution) error {
	const op = "MongoJobRepository.AddStepExecutions"
	if jobExecution == nil || jobExecution.ID == 0 {
		return exception.NewValidationError(op, "JobExecution must have an id")
	}
	cursor, err := r.collection(CollectionStepExecution).Find(ctx,
		bson.D{{Key: fieldJobExecutionID, Value: jobExecution.ID}},
		options.Find().SetSort(bson.D{{Key: fieldStepExecutionID, Value: 1}}))
	if err != nil {
		return storeError(op, fmt.Sprintf("failed to query StepExecutions of JobExecution (ID: %d)", jobExecution.ID), err)
	}
	var docs []stepExecutionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return storeError(op, "failed to decode StepExecutions", err)
	}
	for i := range docs {
		jobExecution.AddStepExecution(toDomainStepExecution(&docs[i], jobExecution))
	}
	return nil
}

// CountStepExecutions counts executions of stepName across all executions of instance.
func (r *MongoJobRepository) CountStepExecutions(ctx context.Context, instance *model.JobInstance, stepName string) (int, error) {
	const op = "MongoJobRepository.CountStepExecutions"
	if instance == nil || instance.ID == 0 {
		return 0, exception.NewValidationError(op, "JobInstance and its id cannot be empty")
	}
	executions, err := r.FindJobExecutions(ctx, instance)
	if err != nil {
		return 0, err
	}
	if len(executions) == 0 {
		return 0, nil
	}
	ids := make([]int64, 0, len(executions))
	for _, je := range executions {
		ids = append(ids, je.ID)
	}
	n, err := r.collection(CollectionStepExecution).CountDocuments(ctx, bson.D{
		{Key: fieldJobExecutionID, Value: bson.D{{Key: "$in", Value: ids}}},
		{Key: fieldStepName, Value: stepName},
	})
	if err != nil {
		return 0, storeError(op, fmt.Sprintf("failed to count StepExecutions of '%s'", stepName), err)
	}
	return int(n), nil
}
