package services

import (
	"sync"

	. "turnkeep/internal/models"

	"github.com/google/uuid"
)

// ChangeType mirrors the row-level change feed: every write to the schedules
// table is broadcast to every subscriber as one of these.
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// ChangeEvent is one row-level change notification. Old and New carry the row
// before and after the write; Origin identifies the websocket session whose
// write caused it, when the write came through this server.
type ChangeEvent struct {
	Type       ChangeType `json:"type"`
	ScheduleID uuid.UUID  `json:"scheduleId"`
	Origin     string     `json:"origin,omitempty"`
	Old        *Schedule  `json:"old,omitempty"`
	New        *Schedule  `json:"new,omitempty"`
}

// ReconcileAction is what a viewer session should do with a change event.
type ReconcileAction string

const (
	// ReconcileIgnore drops the event: local state is left exactly as-is.
	ReconcileIgnore ReconcileAction = "ignore"
	// ReconcileMerge folds the event into local state without a reload
	// (currently only deletions: drop the entity).
	ReconcileMerge ReconcileAction = "merge"
	// ReconcileReload tells the viewer to refetch the schedule collection.
	ReconcileReload ReconcileAction = "reload"
)

// Classify decides what a viewer should do with an inbound change event.
// Pure function; suppressed reports whether the viewer pre-armed a
// suppress-next flag for this row (i.e. the event echoes its own write).
//
// The cleaning-status ignore rule is deliberate: while a schedule is being
// cleaned, concurrent operational writes (checklist ticks, observations)
// from another actor must not reset the viewer's screen. Last writer wins at
// the store and the other editor simply doesn't see it until their next
// reload. UI stability is favored over strict consistency here.
func Classify(event ChangeEvent, suppressed bool) ReconcileAction {
	if suppressed {
		return ReconcileIgnore
	}

	switch event.Type {
	case ChangeDelete:
		return ReconcileMerge

	case ChangeInsert:
		// A row outside local knowledge; a one-off full reload is cheaper
		// than partial reconciliation.
		return ReconcileReload

	case ChangeUpdate:
		if event.Old == nil || event.New == nil {
			return ReconcileReload
		}
		if event.Old.Status != event.New.Status {
			// Status changes move cards between columns and change the
			// aggregate counts, so everyone refetches.
			return ReconcileReload
		}
		// Same-status updates are operational edits: checklist ticks, notes,
		// observations. Viewers pick them up on their next natural reload.
		return ReconcileIgnore

	default:
		return ReconcileIgnore
	}
}

// SuppressRegistry holds single-use suppress-next flags. A session arms a flag
// right before persisting a write; the echo of that write consumes the flag
// and is ignored instead of triggering a redundant self-reload.
type SuppressRegistry struct {
	mu    sync.Mutex
	armed map[suppressKey]struct{}
}

type suppressKey struct {
	session    string
	scheduleID uuid.UUID
}

func NewSuppressRegistry() *SuppressRegistry {
	return &SuppressRegistry{
		armed: make(map[suppressKey]struct{}),
	}
}

// Arm marks the next change event for (session, schedule) to be ignored.
func (r *SuppressRegistry) Arm(session string, scheduleID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed[suppressKey{session: session, scheduleID: scheduleID}] = struct{}{}
}

// Consume reports and clears the flag for (session, schedule). Single use:
// a second matching event is processed normally.
func (r *SuppressRegistry) Consume(session string, scheduleID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := suppressKey{session: session, scheduleID: scheduleID}
	if _, ok := r.armed[key]; ok {
		delete(r.armed, key)
		return true
	}
	return false
}
