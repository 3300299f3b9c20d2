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
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

func jobExecutionFilter(id int64) bson.D {
	return bson.D{{Key: fieldJobExecutionID, Value: id}}
}

// SaveJobExecution persists a new JobExecution with a fresh id and version 1.
func (r *MongoJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	const op = "MongoJobRepository.SaveJobExecution"
	if err := repository.ValidateJobExecutionForSave(op, jobExecution); err != nil {
		return err
	}

	id, err := r.nextID(ctx, repository.SequenceJobExecution)
	if err != nil {
		return err
	}
	jobExecution.ID = id
	jobExecution.Version = 1

	_, err = r.collection(CollectionJobExecution).ReplaceOne(ctx,
		jobExecutionFilter(id), fromDomainJobExecution(jobExecution), options.Replace().SetUpsert(true))
	if err != nil {
		return storeError(op, fmt.Sprintf("failed to save JobExecution (ID: %d)", id), err)
	}
	for _, se := range jobExecution.StepExecutions {
		se.JobExecutionID = id
	}
	return nil
}

// UpdateJobExecution replaces the row if its version still matches, then increments the version.
func (r *MongoJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	const op = "MongoJobRepository.UpdateJobExecution"
	if err := repository.ValidateJobExecutionForUpdate(op, jobExecution); err != nil {
		return err
	}

	coll := r.collection(CollectionJobExecution)
	n, err := coll.CountDocuments(ctx, jobExecutionFilter(jobExecution.ID))
	if err != nil {
		return storeError(op, fmt.Sprintf("failed to look up JobExecution (ID: %d)", jobExecution.ID), err)
	}
	if n == 0 {
		return exception.NewNotFoundError(op, fmt.Sprintf("Invalid JobExecution, ID %d not found.", jobExecution.ID))
	}

	doc := fromDomainJobExecution(jobExecution)
	doc.Version = jobExecution.Version + 1
	res, err := coll.ReplaceOne(ctx,
		bson.D{{Key: fieldJobExecutionID, Value: jobExecution.ID}, {Key: fieldVersion, Value: jobExecution.Version}},
		doc)
	if err != nil {
		return storeError(op, fmt.Sprintf("failed to update JobExecution (ID: %d)", jobExecution.ID), err)
	}
	if res.MatchedCount == 0 {
		return exception.NewOptimisticLockingFailureException(op,
			fmt.Sprintf("JobExecution (ID: %d) with version %d was updated by another process", jobExecution.ID, jobExecution.Version), nil)
	}
	jobExecution.IncrementVersion()
	return nil
}

// FindJobExecutions returns all executions of instance, newest id first.
func (r *MongoJobRepository) FindJobExecutions(ctx context.Context, instance *model.JobInstance) ([]*model.JobExecution, error) {
	const op = "MongoJobRepository.FindJobExecutions"
	if instance == nil || instance.ID == 0 {
		return nil, exception.NewValidationError(op, "JobInstance and its id cannot be empty")
	}
	return r.findJobExecutions(ctx, op,
		bson.D{{Key: fieldJobInstanceID, Value: instance.ID}},
		options.Find().SetSort(bson.D{{Key: fieldJobExecutionID, Value: -1}}))
}

// GetLastJobExecution returns the most recently created execution of instance, or nil.
func (r *MongoJobRepository) GetLastJobExecution(ctx context.Context, instance *model.JobInstance) (*model.JobExecution, error) {
	const op = "MongoJobRepository.GetLastJobExecution"
	if instance == nil || instance.ID == 0 {
		return nil, exception.NewValidationError(op, "JobInstance and its id cannot be empty")
	}
	executions, err := r.findJobExecutions(ctx, op,
		bson.D{{Key: fieldJobInstanceID, Value: instance.ID}},
		options.Find().SetSort(bson.D{{Key: fieldCreateTime, Value: -1}}).SetLimit(1))
	if err != nil || len(executions) == 0 {
		return nil, err
	}
	return executions[0], nil
}

// FindRunningJobExecutions returns executions of jobName whose end time is unset, newest id first.
func (r *MongoJobRepository) FindRunningJobExecutions(ctx context.Context, jobName string) ([]*model.JobExecution, error) {
	const op = "MongoJobRepository.FindRunningJobExecutions"
	ids, err := r.instanceIDsByName(ctx, op, jobName)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.JobExecution{}, nil
	}
	return r.findJobExecutions(ctx, op,
		bson.D{
			{Key: fieldJobInstanceID, Value: bson.D{{Key: "$in", Value: ids}}},
			{Key: fieldEndTime, Value: nil},
		},
		options.Find().SetSort(bson.D{{Key: fieldJobExecutionID, Value: -1}}))
}

// GetJobExecution finds an execution by id, or nil.
func (r *MongoJobRepository) GetJobExecution(ctx context.Context, executionID int64) (*model.JobExecution, error) {
	const op = "MongoJobRepository.GetJobExecution"
	doc, err := r.findJobExecutionDocument(ctx, op, executionID)
	if err != nil || doc == nil {
		return nil, err
	}
	return toDomainJobExecution(doc), nil
}

// SynchronizeStatus reconciles the in-memory status and version with the stored row when the
// versions differ. A missing row is written from jobExecution first. Status only moves up.
func (r *MongoJobRepository) SynchronizeStatus(ctx context.Context, jobExecution *model.JobExecution) error {
	const op = "MongoJobRepository.SynchronizeStatus"
	if jobExecution == nil || jobExecution.ID == 0 {
		return exception.NewValidationError(op, "JobExecution must have an id")
	}

	doc, err := r.findJobExecutionDocument(ctx, op, jobExecution.ID)
	if err != nil {
		return err
	}
	if doc != nil && doc.Version == jobExecution.Version {
		return nil
	}
	if doc == nil {
		logger.Debugf("%s: JobExecution (ID: %d) has no stored row; writing it.", op, jobExecution.ID)
		doc = fromDomainJobExecution(jobExecution)
		_, err := r.collection(CollectionJobExecution).ReplaceOne(ctx,
			jobExecutionFilter(jobExecution.ID), doc, options.Replace().SetUpsert(true))
		if err != nil {
			return storeError(op, fmt.Sprintf("failed to save JobExecution (ID: %d)", jobExecution.ID), err)
		}
	}
	jobExecution.UpgradeStatus(model.ParseJobStatus(doc.Status))
	jobExecution.Version = doc.Version
	return nil
}

func (r *MongoJobRepository) findJobExecutionDocument(ctx context.Context, op string, id int64) (*jobExecutionDocument, error) {
	var doc jobExecutionDocument
	err := r.collection(CollectionJobExecution).FindOne(ctx, jobExecutionFilter(id)).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(op, fmt.Sprintf("failed to find JobExecution (ID: %d)", id), err)
	}
	return &doc, nil
}

func (r *MongoJobRepository) findJobExecutions(ctx context.Context, op string, filter bson.D, opts *options.FindOptions) ([]*model.JobExecution, error) {
	cursor, err := r.collection(CollectionJobExecution).Find(ctx, filter, opts)
	if err != nil {
		return nil, storeError(op, "failed to query JobExecutions", err)
	}
	var docs []jobExecutionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storeError(op, "failed to decode JobExecutions", err)
	}
	result := make([]*model.JobExecution, 0, len(docs))
	for i := range docs {
		result = append(result, toDomainJobExecution(&docs[i]))
	}
	return result, nil
}
