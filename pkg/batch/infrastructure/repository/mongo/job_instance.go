package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/repository"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/support/jobkey"
	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
)

// CreateJobInstance stores a new instance for (jobName, params).
func (r *MongoJobRepository) CreateJobInstance(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error) {
	const op = "MongoJobRepository.CreateJobInstance"
	if jobName == "" {
		return nil, exception.NewValidationError(op, "job name cannot be empty")
	}

	existing, err := r.GetJobInstance(ctx, jobName, params)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, exception.NewDuplicateInstanceError(op,
			fmt.Sprintf("JobInstance for job '%s' with key %s already exists (ID: %d)", jobName, existing.JobKey, existing.ID), nil)
	}

	id, err := r.nextID(ctx, repository.SequenceJobInstance)
	if err != nil {
		return nil, err
	}
	instance := &model.JobInstance{
		ID:         id,
		JobName:    jobName,
		JobKey:     jobkey.ComputeKey(params),
		Parameters: params,
		Version:    1,
		CreateTime: time.Now(),
	}
	if _, err := r.collection(CollectionJobInstance).InsertOne(ctx, fromDomainJobInstance(instance)); err != nil {
		// The unique index on (jobName, jobKey) catches a concurrent create.
		if mongodriver.IsDuplicateKeyError(err) {
			return nil, exception.NewDuplicateInstanceError(op,
				fmt.Sprintf("JobInstance for job '%s' with key %s already exists", jobName, instance.JobKey), err)
		}
		return nil, storeError(op, fmt.Sprintf("failed to save JobInstance (ID: %d)", id), err)
	}
	return instance, nil
}

// GetJobInstance finds the instance for jobName whose key matches params, or nil.
func (r *MongoJobRepository) GetJobInstance(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error) {
	const op = "MongoJobRepository.GetJobInstance"
	filter := bson.D{{Key: fieldJobName, Value: jobName}, {Key: fieldJobKey, Value: jobkey.ComputeKey(params)}}
	return r.findOneJobInstance(ctx, op, filter)
}

// GetJobInstanceByID finds a JobInstance by its ID, or nil.
func (r *MongoJobRepository) GetJobInstanceByID(ctx context.Context, id int64) (*model.JobInstance, error) {
	const op = "MongoJobRepository.GetJobInstanceByID"
	return r.findOneJobInstance(ctx, op, bson.D{{Key: fieldJobInstanceID, Value: id}})
}

// GetJobInstanceForExecution finds the instance owning jobExecution, or nil.
func (r *MongoJobRepository) GetJobInstanceForExecution(ctx context.Context, jobExecution *model.JobExecution) (*model.JobInstance, error) {
	const op = "MongoJobRepository.GetJobInstanceForExecution"
	if jobExecution == nil {
		return nil, nil
	}
	var doc jobExecutionDocument
	err := r.collection(CollectionJobExecution).
		FindOne(ctx, bson.D{{Key: fieldJobExecutionID, Value: jobExecution.ID}}).
		Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(op, fmt.Sprintf("failed to find JobExecution (ID: %d)", jobExecution.ID), err)
	}
	return r.GetJobInstanceByID(ctx, doc.JobInstanceID)
}

// GetJobInstances returns instances of jobName, newest id first. A negative count means no limit.
func (r *MongoJobRepository) GetJobInstances(ctx context.Context, jobName string, start, count int) ([]*model.JobInstance, error) {
	const op = "MongoJobRepository.GetJobInstances"
	opts := options.Find().SetSort(bson.D{{Key: fieldJobInstanceID, Value: -1}})
	if start > 0 {
		opts.SetSkip(int64(start))
	}
	if count >= 0 {
		if count == 0 {
			return []*model.JobInstance{}, nil
		}
		opts.SetLimit(int64(count))
	}

	cursor, err := r.collection(CollectionJobInstance).Find(ctx, bson.D{{Key: fieldJobName, Value: jobName}}, opts)
	if err != nil {
		return nil, storeError(op, fmt.Sprintf("failed to list JobInstances of '%s'", jobName), err)
	}
	var docs []jobInstanceDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storeError(op, fmt.Sprintf("failed to decode JobInstances of '%s'", jobName), err)
	}
	result := make([]*model.JobInstance, 0, len(docs))
	for i := range docs {
		result = append(result, toDomainJobInstance(&docs[i]))
	}
	return result, nil
}

// FindJobInstancesByName behaves like GetJobInstances.
func (r *MongoJobRepository) FindJobInstancesByName(ctx context.Context, jobName string, start, count int) ([]*model.JobInstance, error) {
	return r.GetJobInstances(ctx, jobName, start, count)
}

// GetJobNames returns the distinct job names, sorted.
func (r *MongoJobRepository) GetJobNames(ctx context.Context) ([]string, error) {
	const op = "MongoJobRepository.GetJobNames"
	values, err := r.collection(CollectionJobInstance).Distinct(ctx, fieldJobName, bson.D{})
	if err != nil {
		return nil, storeError(op, "failed to list job names", err)
	}
	names := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			names = append(names, s)
		}
	}
	sort.Strings(names)
	return names, nil
}

// GetJobInstanceCount returns the number of instances of jobName; zero when there are none.
func (r *MongoJobRepository) GetJobInstanceCount(ctx context.Context, jobName string) (int, error) {
	const op = "MongoJobRepository.GetJobInstanceCount"
	n, err := r.collection(CollectionJobInstance).CountDocuments(ctx, bson.D{{Key: fieldJobName, Value: jobName}})
	if err != nil {
		return 0, storeError(op, fmt.Sprintf("failed to count JobInstances of '%s'", jobName), err)
	}
	return int(n), nil
}

func (r *MongoJobRepository) findOneJobInstance(ctx context.Context, op string, filter bson.D) (*model.JobInstance, error) {
	var doc jobInstanceDocument
	err := r.collection(CollectionJobInstance).FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(op, "failed to find JobInstance", err)
	}
	return toDomainJobInstance(&doc), nil
}

// instanceIDsByName returns the ids of all instances of jobName.
func (r *MongoJobRepository) instanceIDsByName(ctx context.Context, op, jobName string) ([]int64, error) {
	opts := options.Find().SetProjection(bson.D{{Key: fieldJobInstanceID, Value: 1}})
	cursor, err := r.collection(CollectionJobInstance).Find(ctx, bson.D{{Key: fieldJobName, Value: jobName}}, opts)
	if err != nil {
		return nil, storeError(op, fmt.Sprintf("failed to list JobInstances of '%s'", jobName), err)
	}
	var docs []jobInstanceDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storeError(op, fmt.Sprintf("failed to decode JobInstances of '%s'", jobName), err)
	}
	ids := make([]int64, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.JobInstanceID)
	}
	return ids, nil
}
