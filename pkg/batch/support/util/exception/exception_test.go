package exception_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
)

func TestClassifiedErrorsMatchSentinels(t *testing.T) {
	cause := errors.New("connection reset by peer")

	storeErr := exception.NewStoreUnavailableError("op", "insert failed", cause)
	assert.True(t, exception.IsStoreUnavailable(storeErr))
	assert.True(t, errors.Is(storeErr, cause))
	assert.True(t, exception.IsTemporary(storeErr))
	assert.True(t, exception.IsErrorOfType(storeErr, exception.StoreUnavailableException))

	lockErr := exception.NewOptimisticLockingFailureException("op", "stale version", nil)
	assert.True(t, exception.IsOptimisticLockingFailure(lockErr))
	assert.False(t, exception.IsTemporary(lockErr))
	assert.False(t, exception.IsStoreUnavailable(lockErr))

	rowErr := exception.NewRowParseError("op", "3 values for 4 headers")
	assert.True(t, rowErr.IsSkippable())
	assert.Equal(t, "3 values for 4 headers", exception.ExtractErrorMessage(rowErr))
}

func TestBatchErrorf_UsesTrailingErrorAsCause(t *testing.T) {
	cause := errors.New("boom")
	err := exception.NewBatchErrorf("loader", "dataset %s failed", "haulage_info", cause)

	assert.Equal(t, "dataset haulage_info failed", err.Message)
	assert.Same(t, cause, err.Unwrap())
	assert.Equal(t, "[loader] dataset haulage_info failed: boom", err.Error())
	assert.True(t, exception.IsBatchError(err))
}
