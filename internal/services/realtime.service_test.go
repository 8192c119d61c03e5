package services

import (
	"sync"
	"testing"

	. "turnkeep/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func scheduleWithStatus(id uuid.UUID, status Status) *Schedule {
	schedule := &Schedule{Status: status}
	schedule.ID = id
	return schedule
}

func TestClassify(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name       string
		event      ChangeEvent
		suppressed bool
		want       ReconcileAction
	}{
		{
			name: "suppressed event is ignored regardless of type",
			event: ChangeEvent{
				Type:       ChangeUpdate,
				ScheduleID: id,
				Old:        scheduleWithStatus(id, StatusWaiting),
				New:        scheduleWithStatus(id, StatusReleased),
			},
			suppressed: true,
			want:       ReconcileIgnore,
		},
		{
			name:  "delete merges locally",
			event: ChangeEvent{Type: ChangeDelete, ScheduleID: id},
			want:  ReconcileMerge,
		},
		{
			name: "insert reloads",
			event: ChangeEvent{
				Type:       ChangeInsert,
				ScheduleID: id,
				New:        scheduleWithStatus(id, StatusWaiting),
			},
			want: ReconcileReload,
		},
		{
			name: "status change reloads",
			event: ChangeEvent{
				Type:       ChangeUpdate,
				ScheduleID: id,
				Old:        scheduleWithStatus(id, StatusReleased),
				New:        scheduleWithStatus(id, StatusCleaning),
			},
			want: ReconcileReload,
		},
		{
			name: "operational update during cleaning is ignored",
			event: ChangeEvent{
				Type:       ChangeUpdate,
				ScheduleID: id,
				Old:        scheduleWithStatus(id, StatusCleaning),
				New:        scheduleWithStatus(id, StatusCleaning),
			},
			want: ReconcileIgnore,
		},
		{
			name: "same-status update outside cleaning is ignored",
			event: ChangeEvent{
				Type:       ChangeUpdate,
				ScheduleID: id,
				Old:        scheduleWithStatus(id, StatusWaiting),
				New:        scheduleWithStatus(id, StatusWaiting),
			},
			want: ReconcileIgnore,
		},
		{
			name: "update without row snapshots reloads",
			event: ChangeEvent{
				Type:       ChangeUpdate,
				ScheduleID: id,
			},
			want: ReconcileReload,
		},
		{
			name:  "unknown change type is ignored",
			event: ChangeEvent{Type: ChangeType("truncate"), ScheduleID: id},
			want:  ReconcileIgnore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.event, tt.suppressed))
		})
	}
}

func TestSuppressRegistry_SingleUse(t *testing.T) {
	registry := NewSuppressRegistry()
	scheduleID := uuid.New()

	registry.Arm("session-a", scheduleID)

	assert.True(t, registry.Consume("session-a", scheduleID))
	assert.False(t, registry.Consume("session-a", scheduleID),
		"a consumed flag must not suppress a second event")
}

func TestSuppressRegistry_KeyedBySessionAndSchedule(t *testing.T) {
	registry := NewSuppressRegistry()
	scheduleID := uuid.New()
	otherSchedule := uuid.New()

	registry.Arm("session-a", scheduleID)

	assert.False(t, registry.Consume("session-b", scheduleID),
		"another session's flag must not be consumed")
	assert.False(t, registry.Consume("session-a", otherSchedule),
		"a flag is scoped to one schedule")
	assert.True(t, registry.Consume("session-a", scheduleID))
}

func TestSuppressRegistry_ConcurrentConsumeIsExclusive(t *testing.T) {
	registry := NewSuppressRegistry()
	scheduleID := uuid.New()
	registry.Arm("session-a", scheduleID)

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan bool, attempts)

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- registry.Consume("session-a", scheduleID)
		}()
	}
	wg.Wait()
	close(results)

	consumed := 0
	for ok := range results {
		if ok {
			consumed++
		}
	}
	assert.Equal(t, 1, consumed, "exactly one consumer may win the flag")
}
