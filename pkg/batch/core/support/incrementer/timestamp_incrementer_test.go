package incrementer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
)

func TestTimestampIncrementer_GetNext(t *testing.T) {
	inc := NewTimestampIncrementer("")
	inc.now = func() time.Time { return time.UnixMilli(1700000000000) }

	params := model.NewJobParameters()
	params.Put("env", "prod")

	next := inc.GetNext(params)
	assert.Equal(t, int64(1700000000000), next.Get(DefaultRunIDName))
	assert.Equal(t, "prod", next.Get("env"))
	assert.Nil(t, params.Get(DefaultRunIDName), "input parameters must not be modified")
}
