package incrementer

import (
	"fmt"
	"time"

	port "github.com/tigerroll/surfin-datasync/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfin-datasync/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// DefaultRunIDName is the parameter that distinguishes one run of a job from the next.
const DefaultRunIDName = "run.id"

// TimestampIncrementer is an implementation of JobParametersIncrementer that sets a parameter
// to the current Unix milliseconds.
type TimestampIncrementer struct {
	name string
	now  func() time.Time
}

// NewTimestampIncrementer creates a new instance of TimestampIncrementer.
func NewTimestampIncrementer(name string) *TimestampIncrementer {
	if name == "" {
		name = DefaultRunIDName
	}
	return &TimestampIncrementer{name: name, now: time.Now}
}

// GetNext copies params and sets the parameter to the current Unix milliseconds as an int64.
func (i *TimestampIncrementer) GetNext(params model.JobParameters) model.JobParameters {
	nextParams := model.NewJobParameters()
	for k, v := range params.Params {
		nextParams.Put(k, v)
	}

	timestamp := i.now().UnixMilli()
	nextParams.Put(i.name, timestamp)
	logger.Debugf("JobParametersIncrementer '%s': Setting '%s' to %d.", i.name, i.name, timestamp)

	return nextParams
}

// String returns the string representation of TimestampIncrementer.
func (i *TimestampIncrementer) String() string {
	return fmt.Sprintf("TimestampIncrementer[name=%s]", i.name)
}

// Ensure TimestampIncrementer implements port.JobParametersIncrementer
var _ port.JobParametersIncrementer = (*TimestampIncrementer)(nil)
