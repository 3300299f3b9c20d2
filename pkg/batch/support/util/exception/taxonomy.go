package exception

import (
	"context"
	"errors"
)

// Error type names, usable with IsErrorOfType.
const (
	ValidationException               = "ValidationException"
	DuplicateInstanceException        = "DuplicateInstanceException"
	NotFoundException                 = "NotFoundException"
	NoSuchJobException                = "NoSuchJobException"
	OptimisticLockingFailureException = "OptimisticLockingFailureException"
	IllegalStateException             = "IllegalStateException"
	FetchException                    = "FetchException"
	RowParseException                 = "RowParseException"
	StoreUnavailableException         = "StoreUnavailableException"
)

var (
	// ErrValidation marks a malformed entity handed to the store. Always a caller bug.
	ErrValidation = errors.New(ValidationException)
	// ErrDuplicateInstance marks an attempt to create a job instance whose (name, key) already exists.
	ErrDuplicateInstance = errors.New(DuplicateInstanceException)
	// ErrNotFound marks a lookup miss on an operation that requires the row to exist.
	ErrNotFound = errors.New(NotFoundException)
	// ErrNoSuchJob marks a job name with no known definition or instance.
	ErrNoSuchJob = errors.New(NoSuchJobException)
	// ErrOptimisticLockingFailure marks a version conflict on a conditional update.
	ErrOptimisticLockingFailure = errors.New(OptimisticLockingFailureException)
	// ErrIllegalState marks data that should be structurally impossible.
	ErrIllegalState = errors.New(IllegalStateException)
	// ErrFetch marks a remote retrieval that exhausted its attempts.
	ErrFetch = errors.New(FetchException)
	// ErrRowParse marks a malformed CSV row. It is recovered by quarantining the row.
	ErrRowParse = errors.New(RowParseException)
	// ErrStoreUnavailable marks a connectivity failure against the document store.
	ErrStoreUnavailable = errors.New(StoreUnavailableException)
)

func init() {
	RegisterErrorType(ValidationException, ErrValidation)
	RegisterErrorType(DuplicateInstanceException, ErrDuplicateInstance)
	RegisterErrorType(NotFoundException, ErrNotFound)
	RegisterErrorType(NoSuchJobException, ErrNoSuchJob)
	RegisterErrorType(OptimisticLockingFailureException, ErrOptimisticLockingFailure)
	RegisterErrorType(IllegalStateException, ErrIllegalState)
	RegisterErrorType(FetchException, ErrFetch)
	RegisterErrorType(RowParseException, ErrRowParse)
	RegisterErrorType(StoreUnavailableException, ErrStoreUnavailable)

	RegisterErrorType("context.DeadlineExceeded", context.DeadlineExceeded)
	RegisterErrorType("context.Canceled", context.Canceled)
}

func classified(sentinel error, module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	errToWrap := sentinel
	if originalErr != nil {
		errToWrap = errors.Join(sentinel, originalErr)
	}
	return NewBatchError(module, message, errToWrap, isSkippable, isRetryable)
}

// NewValidationError creates an error for a malformed entity.
func NewValidationError(module, message string) *BatchError {
	return classified(ErrValidation, module, message, nil, false, false)
}

// NewDuplicateInstanceError creates an error for an already existing job instance.
func NewDuplicateInstanceError(module, message string, originalErr error) *BatchError {
	return classified(ErrDuplicateInstance, module, message, originalErr, false, false)
}

// NewNotFoundError creates an error for a required row that does not exist.
func NewNotFoundError(module, message string) *BatchError {
	return classified(ErrNotFound, module, message, nil, false, false)
}

// NewNoSuchJobError creates an error for an unknown job name.
func NewNoSuchJobError(module, message string) *BatchError {
	return classified(ErrNoSuchJob, module, message, nil, false, false)
}

// NewOptimisticLockingFailureException creates an error for a version conflict.
// Conflicts are neither retryable nor skippable at this level; callers reload and decide.
func NewOptimisticLockingFailureException(module, message string, originalErr error) *BatchError {
	return classified(ErrOptimisticLockingFailure, module, message, originalErr, false, false)
}

// NewIllegalStateError creates an error for corrupted or impossible data.
func NewIllegalStateError(module, message string) *BatchError {
	return classified(ErrIllegalState, module, message, nil, false, false)
}

// NewFetchError creates an error for a remote retrieval that ran out of attempts.
func NewFetchError(module, message string, originalErr error) *BatchError {
	return classified(ErrFetch, module, message, originalErr, false, false)
}

// NewRowParseError creates an error for a malformed row. It is skippable by definition.
func NewRowParseError(module, message string) *BatchError {
	return classified(ErrRowParse, module, message, nil, true, false)
}

// NewStoreUnavailableError creates an error for a store connectivity failure.
func NewStoreUnavailableError(module, message string, originalErr error) *BatchError {
	return classified(ErrStoreUnavailable, module, message, originalErr, false, true)
}

// IsOptimisticLockingFailure reports whether err is a version conflict.
func IsOptimisticLockingFailure(err error) bool {
	return errors.Is(err, ErrOptimisticLockingFailure)
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsDuplicateInstance reports whether err is a duplicate job instance error.
func IsDuplicateInstance(err error) bool { return errors.Is(err, ErrDuplicateInstance) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsFetch reports whether err is a fetch error.
func IsFetch(err error) bool { return errors.Is(err, ErrFetch) }

// IsStoreUnavailable reports whether err is a store connectivity error.
func IsStoreUnavailable(err error) bool { return errors.Is(err, ErrStoreUnavailable) }
