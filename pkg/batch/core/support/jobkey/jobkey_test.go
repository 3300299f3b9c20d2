package jobkey_test

import (
	"crypto/md5"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	"github.com/tigerroll/surfin-datasync/pkg/batch/core/support/jobkey"
)

func params(kv ...interface{}) model.JobParameters {
	p := model.NewJobParameters()
	for i := 0; i < len(kv); i += 2 {
		p.Put(kv[i].(string), kv[i+1])
	}
	return p
}

func TestComputeKey_KnownDigest(t *testing.T) {
	p := params("run.id", int64(1697040000000), "env", "prod")
	want := fmt.Sprintf("%x", md5.Sum([]byte("env=prod;run.id=1697040000000;")))

	got := jobkey.ComputeKey(p)
	assert.Equal(t, want, got)
	assert.Len(t, got, 32)
}

func TestComputeKey_OrderIndependent(t *testing.T) {
	a := params("a", "1", "b", "2", "c", "3")
	b := params("c", "3", "a", "1", "b", "2")
	for i := 0; i < 20; i++ {
		assert.Equal(t, jobkey.ComputeKey(a), jobkey.ComputeKey(b))
	}
}

func TestComputeKey_ChangesWithValue(t *testing.T) {
	base := jobkey.ComputeKey(params("run.id", int64(1)))
	assert.NotEqual(t, base, jobkey.ComputeKey(params("run.id", int64(2))))
	assert.NotEqual(t, base, jobkey.ComputeKey(params("run.id", int64(1), "x", "y")))
}

func TestComputeKey_EmptyParameters(t *testing.T) {
	assert.Equal(t, fmt.Sprintf("%x", md5.Sum(nil)), jobkey.ComputeKey(model.NewJobParameters()))
}

func TestFormatValue_Time(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	assert.Equal(t, "1700000000123", jobkey.FormatValue(ts))
	assert.Equal(t, "2.5", jobkey.FormatValue(2.5))
	assert.Equal(t, "true", jobkey.FormatValue(true))
}
