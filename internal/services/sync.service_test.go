package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "turnkeep/internal/models"
	"turnkeep/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCalendarClient struct {
	synced  int
	err     error
	delay   time.Duration
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func (f *fakeCalendarClient) Sync(ctx context.Context, sourceID *uuid.UUID) (int, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.release != nil {
		<-f.release
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.synced, f.err
}

func (f *fakeCalendarClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingNotifier struct {
	mu       sync.Mutex
	started  int
	finished []string
}

func (n *recordingNotifier) SyncStarted() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started++
}

func (n *recordingNotifier) SyncFinished(outcome string, synced int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = append(n.finished, outcome)
}

func newSyncFixture(client CalendarClient, timeout time.Duration, capacity int) *SyncService {
	return &SyncService{
		calendar: client,
		timeout:  timeout,
		capacity: capacity,
		log:      logger.New("test"),
	}
}

func syncActor() *User {
	user := &User{Role: RoleManager}
	user.ID = uuid.New()
	return user
}

func TestStartSync_Success(t *testing.T) {
	client := &fakeCalendarClient{synced: 12}
	service := newSyncFixture(client, time.Second, 5)
	notifier := &recordingNotifier{}
	service.SetNotifier(notifier)

	result, err := service.StartSync(context.Background(), syncActor(), nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 12, result.Synced)

	runs := service.RecentRuns()
	require.Len(t, runs, 1)
	assert.Equal(t, SyncOutcomeSuccess, runs[0].Outcome)
	assert.Equal(t, 12, runs[0].Synced)

	assert.Equal(t, 1, notifier.started)
	assert.Equal(t, []string{"success"}, notifier.finished)
	assert.False(t, service.InFlight())
}

func TestStartSync_SecondRequestDroppedWithoutTrace(t *testing.T) {
	client := &fakeCalendarClient{synced: 3, release: make(chan struct{})}
	service := newSyncFixture(client, time.Second, 5)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = service.StartSync(context.Background(), syncActor(), nil)
	}()

	require.Eventually(t, service.InFlight, time.Second, 5*time.Millisecond)

	// Second attempt while the first is blocked: no result, no error, and no
	// second call to the remote.
	result, err := service.StartSync(context.Background(), syncActor(), nil)
	assert.Nil(t, result)
	assert.NoError(t, err)

	close(client.release)
	wg.Wait()

	assert.Equal(t, 1, client.callCount())
	assert.Len(t, service.RecentRuns(), 1,
		"the dropped request must not leave an audit entry")
}

func TestStartSync_ErrorOutcomeAudited(t *testing.T) {
	client := &fakeCalendarClient{err: errors.New("feed unreachable")}
	service := newSyncFixture(client, time.Second, 5)
	notifier := &recordingNotifier{}
	service.SetNotifier(notifier)

	result, err := service.StartSync(context.Background(), syncActor(), nil)
	assert.Nil(t, result)
	require.Error(t, err)

	runs := service.RecentRuns()
	require.Len(t, runs, 1)
	assert.Equal(t, SyncOutcomeError, runs[0].Outcome)

	// Viewers still get the finished broadcast after a failure.
	assert.Equal(t, []string{"error"}, notifier.finished)
	assert.False(t, service.InFlight())
}

func TestStartSync_TimeoutReleasesGuard(t *testing.T) {
	client := &fakeCalendarClient{synced: 5, delay: 200 * time.Millisecond}
	service := newSyncFixture(client, 20*time.Millisecond, 5)
	notifier := &recordingNotifier{}
	service.SetNotifier(notifier)

	started := time.Now()
	result, err := service.StartSync(context.Background(), syncActor(), nil)
	elapsed := time.Since(started)

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Less(t, elapsed, 150*time.Millisecond,
		"the caller must be released at the timeout, not at call completion")

	runs := service.RecentRuns()
	require.Len(t, runs, 1)
	assert.Equal(t, SyncOutcomeTimeout, runs[0].Outcome)
	assert.Equal(t, []string{"timeout"}, notifier.finished)
	assert.False(t, service.InFlight(), "a timed-out sync must release the guard")
}

func TestStartSync_AfterTimeoutNewSyncCanStart(t *testing.T) {
	client := &fakeCalendarClient{synced: 5, delay: 100 * time.Millisecond}
	service := newSyncFixture(client, 10*time.Millisecond, 5)

	_, err := service.StartSync(context.Background(), syncActor(), nil)
	require.Error(t, err)

	fast := &fakeCalendarClient{synced: 2}
	service.calendar = fast

	result, err := service.StartSync(context.Background(), syncActor(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Synced)
}

func TestRecentRuns_BoundedNewestFirst(t *testing.T) {
	client := &fakeCalendarClient{synced: 1}
	service := newSyncFixture(client, time.Second, 3)

	for i := 0; i < 5; i++ {
		client.synced = i
		_, err := service.StartSync(context.Background(), syncActor(), nil)
		require.NoError(t, err)
	}

	runs := service.RecentRuns()
	require.Len(t, runs, 3, "the audit ring keeps only the newest entries")
	assert.Equal(t, 4, runs[0].Synced)
	assert.Equal(t, 3, runs[1].Synced)
	assert.Equal(t, 2, runs[2].Synced)
}

func TestStartSync_NoNotifierIsTolerated(t *testing.T) {
	client := &fakeCalendarClient{synced: 7}
	service := newSyncFixture(client, time.Second, 5)

	result, err := service.StartSync(context.Background(), syncActor(), nil)
	require.NoError(t, err)
	assert.Equal(t, 7, result.Synced)
}
