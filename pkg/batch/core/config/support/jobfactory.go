// Package support provides the JobFactory, the registry through which jobs and their
// parameter incrementers are looked up by name.
package support

import (
	"sort"
	"sync"

	"go.uber.org/fx"

	port "github.com/tigerroll/surfin-datasync/pkg/batch/core/application/port"
	exception "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// JobBuilder is a function type for creating a specific Job.
type JobBuilder func() (port.Job, error)

// JobRegistration binds a job name to its builder and optional incrementer.
// Applications contribute registrations to the "jobs" fx group.
type JobRegistration struct {
	Name        string
	Builder     JobBuilder
	Incrementer port.JobParametersIncrementer
}

// JobFactory creates jobs by name from registered builders.
type JobFactory struct {
	mu           sync.RWMutex
	jobBuilders  map[string]JobBuilder
	incrementers map[string]port.JobParametersIncrementer
}

// JobFactoryParams defines the parameters that NewJobFactory receives via fx.
type JobFactoryParams struct {
	fx.In
	Registrations []JobRegistration `group:"jobs"`
}

// NewJobFactory creates a JobFactory pre-populated with the registrations of the "jobs" group.
func NewJobFactory(p JobFactoryParams) *JobFactory {
	jf := &JobFactory{
		jobBuilders:  make(map[string]JobBuilder),
		incrementers: make(map[string]port.JobParametersIncrementer),
	}
	for _, r := range p.Registrations {
		jf.RegisterJobBuilder(r.Name, r.Builder)
		if r.Incrementer != nil {
			jf.RegisterJobParametersIncrementer(r.Name, r.Incrementer)
		}
	}
	return jf
}

// RegisterJobBuilder registers builder under jobName, replacing any previous one.
func (f *JobFactory) RegisterJobBuilder(jobName string, builder JobBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobBuilders[jobName] = builder
	logger.Debugf("JobBuilder for job '%s' registered with JobFactory.", jobName)
}

// RegisterJobParametersIncrementer registers the incrementer applied when jobName is launched.
func (f *JobFactory) RegisterJobParametersIncrementer(jobName string, inc port.JobParametersIncrementer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incrementers[jobName] = inc
}

// CreateJob builds the job registered under jobName. Unknown names yield a NoSuchJobError.
func (f *JobFactory) CreateJob(jobName string) (port.Job, error) {
	const op = "JobFactory.CreateJob"
	f.mu.RLock()
	builder, ok := f.jobBuilders[jobName]
	f.mu.RUnlock()
	if !ok {
		return nil, exception.NewNoSuchJobError(op, "no job registered with name '"+jobName+"'")
	}
	job, err := builder()
	if err != nil {
		return nil, exception.NewBatchErrorf(op, "failed to build job '%s'", jobName, err)
	}
	return job, nil
}

// GetJobParametersIncrementer returns the incrementer of jobName, or nil.
func (f *JobFactory) GetJobParametersIncrementer(jobName string) port.JobParametersIncrementer {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.incrementers[jobName]
}

// JobNames returns the registered job names, sorted.
func (f *JobFactory) JobNames() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.jobBuilders))
	for n := range f.jobBuilders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
