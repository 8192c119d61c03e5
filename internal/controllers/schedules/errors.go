package scheduleController

import "errors"

var (
	// ErrSyncInFlight refuses lifecycle writes while a calendar sync is
	// mutating schedules. Wait for the sync_complete broadcast and retry.
	ErrSyncInFlight = errors.New("a calendar sync is updating schedules, please wait for it to finish")

	ErrInvalidWindow         = errors.New("check-out must be before check-in")
	ErrChecklistNotLoaded    = errors.New("checklist is not loaded until cleaning starts")
	ErrChecklistItemNotFound = errors.New("checklist item not found")
)

// ForbiddenError carries the human-readable denial reason from the
// transition gate.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return e.Reason
}
