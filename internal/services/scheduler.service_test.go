package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name     string
	schedule JobSchedule
}

func (j *stubJob) Name() string          { return j.name }
func (j *stubJob) Schedule() JobSchedule { return j.schedule }

func (j *stubJob) Execute(ctx context.Context) error { return nil }

func TestSchedulerService_RegistersJobsPerSchedule(t *testing.T) {
	service := NewSchedulerService()

	require.NoError(t, service.AddJob(&stubJob{name: "nightly-sweep", schedule: Nightly}))
	require.NoError(t, service.AddJob(&stubJob{name: "hourly-check", schedule: Hourly}))

	assert.Equal(t, 2, service.GetJobCount())
	assert.False(t, service.IsRunning())
}

func TestSchedulerService_StartWithoutJobsIsNoOp(t *testing.T) {
	service := NewSchedulerService()

	require.NoError(t, service.Start(context.Background()))
	assert.False(t, service.IsRunning())
}

func TestSchedulerService_StartAndStop(t *testing.T) {
	service := NewSchedulerService()
	require.NoError(t, service.AddJob(&stubJob{name: "nightly-sweep", schedule: Nightly}))

	require.NoError(t, service.Start(context.Background()))
	assert.True(t, service.IsRunning())

	// Starting twice is tolerated.
	require.NoError(t, service.Start(context.Background()))

	require.NoError(t, service.Stop(context.Background()))
	assert.False(t, service.IsRunning())
}
