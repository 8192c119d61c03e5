package services

import (
	"context"
	"sync"
	"time"

	"turnkeep/config"
	"turnkeep/internal/metrics"
	. "turnkeep/internal/models"
	"turnkeep/pkg/logger"

	"github.com/google/uuid"
)

type SyncOutcome string

const (
	SyncOutcomeSuccess SyncOutcome = "success"
	SyncOutcomeError   SyncOutcome = "error"
	SyncOutcomeTimeout SyncOutcome = "timeout"
)

// SyncRun is one audit entry for a sync attempt. Entries live only in the
// bounded in-memory ring; they are operator-facing recent history, not a
// durable log.
type SyncRun struct {
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt time.Time   `json:"finishedAt"`
	Outcome    SyncOutcome `json:"outcome"`
	DurationMs int64       `json:"durationMs"`
	ActorID    uuid.UUID   `json:"actorId"`
	Synced     int         `json:"synced"`
}

type SyncResult struct {
	Synced int `json:"synced"`
}

// SyncNotifier lets the orchestrator reach connected viewers without a
// dependency on the websocket package. Implemented by websockets.Manager.
type SyncNotifier interface {
	// SyncStarted tells viewers a sync began; open detail views close so no
	// record is displayed mid-mutation.
	SyncStarted()
	// SyncFinished tells viewers to refresh schedule state from the store.
	// Sent after success AND failure, best-effort.
	SyncFinished(outcome string, synced int)
}

// SyncService coordinates bulk calendar syncs as a single, mutually-exclusive,
// time-bounded operation. The in-flight flag is a per-process advisory guard:
// it serializes syncs and blocks schedule mutations on this instance, nothing
// more.
type SyncService struct {
	calendar CalendarClient
	notifier SyncNotifier
	timeout  time.Duration

	mu       sync.Mutex
	inFlight bool
	runs     []SyncRun
	capacity int

	log logger.Logger
}

func NewSyncService(config config.Config, calendar CalendarClient) *SyncService {
	return &SyncService{
		calendar: calendar,
		timeout:  time.Duration(config.SyncTimeoutSeconds) * time.Second,
		capacity: config.SyncAuditCapacity,
		log:      logger.New("syncService"),
	}
}

// SetNotifier wires the websocket manager in after construction; the manager
// itself depends on services, so this breaks the cycle.
func (s *SyncService) SetNotifier(notifier SyncNotifier) {
	s.notifier = notifier
}

// InFlight reports whether a sync is currently running. Every
// schedule-mutating path checks this and refuses with a wait message while
// true.
func (s *SyncService) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// StartSync runs one sync attempt. A second call while one is in flight is a
// no-op returning (nil, nil): it neither queues nor errors, and it leaves no
// audit entry.
//
// The attempt races the calendar call against the configured timeout. When
// the timeout wins the attempt is reported and audited as timed out, but the
// underlying call is NOT cancelled: it may still complete in the background.
// That is an accepted limitation, not a cancellation guarantee.
func (s *SyncService) StartSync(
	ctx context.Context,
	actor *User,
	sourceID *uuid.UUID,
) (*SyncResult, error) {
	log := s.log.TraceFromContext(ctx).Function("StartSync")

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		log.Info("sync already in flight, ignoring request", "actorID", actor.ID)
		return nil, nil
	}
	s.inFlight = true
	s.mu.Unlock()

	started := time.Now().UTC()

	if s.notifier != nil {
		s.notifier.SyncStarted()
	}

	type syncOutcome struct {
		synced int
		err    error
	}

	// Detached from the request context on purpose: the race below may stop
	// waiting while the call keeps running.
	resultCh := make(chan syncOutcome, 1)
	go func() {
		synced, err := s.calendar.Sync(context.WithoutCancel(ctx), sourceID)
		resultCh <- syncOutcome{synced: synced, err: err}
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	var (
		outcome SyncOutcome
		synced  int
		callErr error
	)

	select {
	case result := <-resultCh:
		if result.err != nil {
			outcome = SyncOutcomeError
			callErr = result.err
			log.Er("sync attempt failed", result.err, "actorID", actor.ID)
		} else {
			outcome = SyncOutcomeSuccess
			synced = result.synced
		}

	case <-timer.C:
		outcome = SyncOutcomeTimeout
		log.Warn(
			"sync attempt timed out, underlying call may still complete",
			"actorID", actor.ID,
			"timeout", s.timeout.String(),
		)
	}

	finished := time.Now().UTC()

	s.mu.Lock()
	s.inFlight = false
	s.appendRunLocked(SyncRun{
		StartedAt:  started,
		FinishedAt: finished,
		Outcome:    outcome,
		DurationMs: finished.Sub(started).Milliseconds(),
		ActorID:    actor.ID,
		Synced:     synced,
	})
	s.mu.Unlock()

	metrics.SyncRunsTotal.WithLabelValues(string(outcome)).Inc()
	metrics.SyncDuration.Observe(finished.Sub(started).Seconds())

	// Viewers refresh from the store regardless of outcome.
	if s.notifier != nil {
		s.notifier.SyncFinished(string(outcome), synced)
	}

	if outcome == SyncOutcomeSuccess {
		log.Info(
			"sync attempt succeeded",
			"actorID", actor.ID,
			"synced", synced,
			"duration", finished.Sub(started).String(),
		)
		return &SyncResult{Synced: synced}, nil
	}

	if callErr != nil {
		return nil, callErr
	}
	return nil, log.Error("sync timed out", "timeout", s.timeout.String())
}

// RecentRuns returns the audit ring newest-first.
func (s *SyncService) RecentRuns() []SyncRun {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := make([]SyncRun, len(s.runs))
	for i, run := range s.runs {
		runs[len(s.runs)-1-i] = run
	}
	return runs
}

func (s *SyncService) appendRunLocked(run SyncRun) {
	s.runs = append(s.runs, run)
	if len(s.runs) > s.capacity {
		s.runs = s.runs[len(s.runs)-s.capacity:]
	}
}
