package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Status is the lifecycle position of a schedule. It moves forward through the
// fixed order waiting -> released -> cleaning -> completed; only admins may
// move it backward.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusReleased  Status = "released"
	StatusCleaning  Status = "cleaning"
	StatusCompleted Status = "completed"
)

// StatusOrder is the fixed total order statuses move through.
var StatusOrder = []Status{StatusWaiting, StatusReleased, StatusCleaning, StatusCompleted}

// Index returns the position of the status in the fixed order, or -1 for an
// unknown status.
func (s Status) Index() int {
	for i, status := range StatusOrder {
		if s == status {
			return i
		}
	}
	return -1
}

func (s Status) Valid() bool {
	return s.Index() >= 0
}

// Next returns the unique forward status, or empty when s is terminal or unknown.
func (s Status) Next() Status {
	idx := s.Index()
	if idx < 0 || idx >= len(StatusOrder)-1 {
		return ""
	}
	return StatusOrder[idx+1]
}

type MaintenanceStatus string

const (
	MaintenanceNone     MaintenanceStatus = "none"
	MaintenanceReported MaintenanceStatus = "reported"
	MaintenanceResolved MaintenanceStatus = "resolved"
)

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Schedule is one cleaning turnover: the window between a guest checking out
// and the next guest checking in.
type Schedule struct {
	BaseUUIDModel
	PropertyID uuid.UUID  `gorm:"type:uuid;not null;index"  json:"propertyId"`
	SourceID   *uuid.UUID `gorm:"type:uuid;index"           json:"sourceId,omitempty"`

	GuestName       string          `gorm:"type:text"          json:"guestName"`
	ReservationCode string          `gorm:"type:text;index"    json:"reservationCode"`
	CleaningFee     decimal.Decimal `gorm:"type:numeric(10,2)" json:"cleaningFee"`

	// CheckOut is when cleaning may start; CheckIn is the deadline it must
	// finish by.
	CheckOut time.Time `gorm:"type:timestamp;not null;index" json:"checkOut"`
	CheckIn  time.Time `gorm:"type:timestamp;not null;index" json:"checkIn"`

	Status            Status            `gorm:"type:text;default:'waiting';index" json:"status"`
	MaintenanceStatus MaintenanceStatus `gorm:"type:text;default:'none'"          json:"maintenanceStatus"`
	Priority          Priority          `gorm:"type:text;default:'normal'"        json:"priority"`

	CleanerID *uuid.UUID `gorm:"type:uuid;index" json:"cleanerId,omitempty"`

	Checklist ChecklistSnapshotColumn `gorm:"type:jsonb" json:"checklist"`

	Notes        string `gorm:"type:text" json:"notes"`
	Observations string `gorm:"type:text" json:"observations"`

	StartedAt   *time.Time `gorm:"type:timestamp" json:"startedAt,omitempty"`
	CompletedAt *time.Time `gorm:"type:timestamp" json:"completedAt,omitempty"`

	// Schedules referencing an active reservation are never hard-deleted,
	// only deactivated.
	IsActive bool `gorm:"type:bool;default:true;index" json:"isActive"`

	Property *Property       `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	Source   *CalendarSource `gorm:"foreignKey:SourceID"   json:"source,omitempty"`
	Cleaner  *User           `gorm:"foreignKey:CleanerID"  json:"cleaner,omitempty"`
	History  []ScheduleEvent `gorm:"foreignKey:ScheduleID" json:"history,omitempty"`
}

// ChecklistLoaded reports whether a snapshot has been frozen onto the schedule.
func (s *Schedule) ChecklistLoaded() bool {
	return !s.Checklist.Data().LoadedAt.IsZero()
}

// ActionTag identifies what kind of event a history row records. The set is
// closed; payload shape is fixed per tag.
type ActionTag string

const (
	ActionStatusChanged      ActionTag = "status_changed"
	ActionCompletedWithDelay ActionTag = "completed_with_delay"
	ActionReverted           ActionTag = "reverted"
	ActionTimesEdited        ActionTag = "times_edited"
	ActionNotesEdited        ActionTag = "notes_edited"
	ActionAssignmentChanged  ActionTag = "assignment_changed"
)

// EventPayload carries the action-specific facts for a history event. Only the
// fields for the event's tag are set; the rest stay nil.
type EventPayload struct {
	// completed_with_delay
	DelayMinutes *int64 `json:"delayMinutes,omitempty"`

	// times_edited
	PrevCheckOut *time.Time `json:"prevCheckOut,omitempty"`
	PrevCheckIn  *time.Time `json:"prevCheckIn,omitempty"`
	NewCheckOut  *time.Time `json:"newCheckOut,omitempty"`
	NewCheckIn   *time.Time `json:"newCheckIn,omitempty"`

	// assignment_changed
	PrevCleanerID *uuid.UUID `json:"prevCleanerId,omitempty"`
	NewCleanerID  *uuid.UUID `json:"newCleanerId,omitempty"`

	// notes_edited
	Field *string `json:"field,omitempty"`
}

// ScheduleEvent is one append-only history record. Rows are never updated or
// removed after insert.
type ScheduleEvent struct {
	BaseUUIDModel
	ScheduleID uuid.UUID                          `gorm:"type:uuid;not null;index" json:"scheduleId"`
	ActorID    uuid.UUID                          `gorm:"type:uuid;not null"       json:"actorId"`
	ActorRole  Role                               `gorm:"type:text;not null"       json:"actorRole"`
	Action     ActionTag                          `gorm:"type:text;not null"       json:"action"`
	FromStatus Status                             `gorm:"type:text"                json:"fromStatus"`
	ToStatus   Status                             `gorm:"type:text"                json:"toStatus"`
	OccurredAt time.Time                          `gorm:"type:timestamp;not null"  json:"occurredAt"`
	Payload    datatypes.JSONType[EventPayload]   `gorm:"type:jsonb"               json:"payload"`
}
