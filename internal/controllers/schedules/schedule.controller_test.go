package scheduleController

import (
	"context"
	"sync"
	"testing"
	"time"

	"turnkeep/config"
	. "turnkeep/internal/models"
	"turnkeep/internal/repositories"
	"turnkeep/internal/services"
	"turnkeep/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stuckCalendarClient struct {
	release chan struct{}
}

func (c *stuckCalendarClient) Sync(ctx context.Context, sourceID *uuid.UUID) (int, error) {
	<-c.release
	return 0, nil
}

// countingScheduleRepo fails every read and counts every write; while a sync
// holds the lock, neither should ever be reached.
type countingScheduleRepo struct {
	mu     sync.Mutex
	writes int
}

func (f *countingScheduleRepo) bumpWrites() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
}

func (f *countingScheduleRepo) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *countingScheduleRepo) GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *countingScheduleRepo) List(
	ctx context.Context,
	filter repositories.ScheduleFilter,
) ([]*Schedule, error) {
	return nil, nil
}

func (f *countingScheduleRepo) Create(ctx context.Context, schedule *Schedule) error {
	f.bumpWrites()
	return nil
}

func (f *countingScheduleRepo) Save(ctx context.Context, schedule *Schedule) error {
	f.bumpWrites()
	return nil
}

func (f *countingScheduleRepo) SaveWithEvent(
	ctx context.Context,
	schedule *Schedule,
	event *ScheduleEvent,
) error {
	f.bumpWrites()
	return nil
}

func (f *countingScheduleRepo) AppendEvent(ctx context.Context, event *ScheduleEvent) error {
	f.bumpWrites()
	return nil
}

func (f *countingScheduleRepo) History(
	ctx context.Context,
	scheduleID uuid.UUID,
) ([]*ScheduleEvent, error) {
	return nil, nil
}

func (f *countingScheduleRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	f.bumpWrites()
	return nil
}

func managerActor() *User {
	user := &User{Role: RoleManager}
	user.ID = uuid.New()
	return user
}

func TestMutations_RefusedWhileSyncInFlight(t *testing.T) {
	client := &stuckCalendarClient{release: make(chan struct{})}
	syncService := services.NewSyncService(
		config.Config{SyncTimeoutSeconds: 5, SyncAuditCapacity: 5},
		client,
	)

	repo := &countingScheduleRepo{}
	controller := &ScheduleController{
		scheduleRepo: repo,
		syncService:  syncService,
		suppress:     services.NewSuppressRegistry(),
		log:          logger.New("test"),
	}

	actor := managerActor()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = syncService.StartSync(context.Background(), actor, nil)
	}()
	require.Eventually(t, syncService.InFlight, time.Second, 5*time.Millisecond)

	ctx := context.Background()
	id := uuid.New()
	window := CreateScheduleRequest{
		PropertyID: uuid.New(),
		CheckOut:   time.Now().UTC(),
		CheckIn:    time.Now().UTC().Add(4 * time.Hour),
	}
	notes := "sync should block this"
	cleanerID := uuid.New()

	mutations := []struct {
		name string
		call func() error
	}{
		{"Create", func() error {
			_, err := controller.Create(ctx, actor, window, "")
			return err
		}},
		{"ChangeStatus", func() error {
			_, err := controller.ChangeStatus(ctx, actor, id, StatusReleased, "")
			return err
		}},
		{"UpdateNotes", func() error {
			_, err := controller.UpdateNotes(ctx, actor, id, UpdateNotesRequest{Notes: &notes}, "")
			return err
		}},
		{"UpdateTimes", func() error {
			_, err := controller.UpdateTimes(ctx, actor, id, UpdateTimesRequest{
				CheckOut: window.CheckOut,
				CheckIn:  window.CheckIn,
			}, "")
			return err
		}},
		{"UpdateAssignment", func() error {
			_, err := controller.UpdateAssignment(ctx, actor, id, &cleanerID, "")
			return err
		}},
		{"SetChecklistItem", func() error {
			_, err := controller.SetChecklistItem(ctx, actor, id, uuid.New(), true, "")
			return err
		}},
		{"Deactivate", func() error {
			return controller.Deactivate(ctx, actor, id, "")
		}},
	}

	for _, mutation := range mutations {
		t.Run(mutation.name, func(t *testing.T) {
			err := mutation.call()
			assert.ErrorIs(t, err, ErrSyncInFlight)
		})
	}

	assert.Zero(t, repo.writeCount(),
		"no mutation may reach the store while a sync is in flight")

	close(client.release)
	wg.Wait()
	require.False(t, syncService.InFlight())

	// With the lock released the guard no longer fires; the call proceeds to
	// the read and fails on the missing row instead.
	_, err := controller.ChangeStatus(ctx, actor, id, StatusReleased, "")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
