package scheduleController

import (
	"context"
	"fmt"
	"time"

	"turnkeep/internal/events"
	. "turnkeep/internal/models"
	"turnkeep/internal/repositories"
	"turnkeep/internal/services"
	"turnkeep/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ScheduleController struct {
	scheduleRepo repositories.ScheduleRepository
	propertyRepo repositories.PropertyRepository
	lifecycle    *services.LifecycleService
	syncService  *services.SyncService
	suppress     *services.SuppressRegistry
	eventBus     *events.EventBus
	log          logger.Logger
}

type ScheduleControllerInterface interface {
	Get(ctx context.Context, id uuid.UUID) (*Schedule, error)
	List(ctx context.Context, filter repositories.ScheduleFilter) ([]*Schedule, error)
	History(ctx context.Context, id uuid.UUID) ([]*ScheduleEvent, error)
	Create(ctx context.Context, actor *User, req CreateScheduleRequest, sessionID string) (*Schedule, error)
	ChangeStatus(ctx context.Context, actor *User, id uuid.UUID, newStatus Status, sessionID string) (*Schedule, error)
	UpdateNotes(ctx context.Context, actor *User, id uuid.UUID, req UpdateNotesRequest, sessionID string) (*Schedule, error)
	UpdateTimes(ctx context.Context, actor *User, id uuid.UUID, req UpdateTimesRequest, sessionID string) (*Schedule, error)
	UpdateAssignment(ctx context.Context, actor *User, id uuid.UUID, cleanerID *uuid.UUID, sessionID string) (*Schedule, error)
	SetChecklistItem(ctx context.Context, actor *User, id uuid.UUID, itemID uuid.UUID, done bool, sessionID string) (*Schedule, error)
	Deactivate(ctx context.Context, actor *User, id uuid.UUID, sessionID string) error
}

type CreateScheduleRequest struct {
	PropertyID      uuid.UUID  `json:"propertyId"`
	GuestName       string     `json:"guestName"`
	ReservationCode string     `json:"reservationCode"`
	CheckOut        time.Time  `json:"checkOut"`
	CheckIn         time.Time  `json:"checkIn"`
	Priority        Priority   `json:"priority"`
	CleanerID       *uuid.UUID `json:"cleanerId,omitempty"`
}

// UpdateNotesRequest edits free-text fields. Nil means "leave unchanged".
type UpdateNotesRequest struct {
	Notes        *string `json:"notes,omitempty"`
	Observations *string `json:"observations,omitempty"`
}

type UpdateTimesRequest struct {
	CheckOut time.Time `json:"checkOut"`
	CheckIn  time.Time `json:"checkIn"`
}

func New(
	repos repositories.Repository,
	services services.Service,
	eventBus *events.EventBus,
) ScheduleControllerInterface {
	return &ScheduleController{
		scheduleRepo: repos.Schedule,
		propertyRepo: repos.Property,
		lifecycle:    services.Lifecycle,
		syncService:  services.Sync,
		suppress:     services.Suppress,
		eventBus:     eventBus,
		log:          logger.New("scheduleController"),
	}
}

func (sc *ScheduleController) Get(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	return sc.scheduleRepo.GetByID(ctx, id)
}

func (sc *ScheduleController) List(
	ctx context.Context,
	filter repositories.ScheduleFilter,
) ([]*Schedule, error) {
	return sc.scheduleRepo.List(ctx, filter)
}

func (sc *ScheduleController) History(
	ctx context.Context,
	id uuid.UUID,
) ([]*ScheduleEvent, error) {
	return sc.scheduleRepo.History(ctx, id)
}

func (sc *ScheduleController) Create(
	ctx context.Context,
	actor *User,
	req CreateScheduleRequest,
	sessionID string,
) (*Schedule, error) {
	log := sc.log.TraceFromContext(ctx).Function("Create")

	if sc.syncService.InFlight() {
		return nil, ErrSyncInFlight
	}

	if !req.CheckOut.Before(req.CheckIn) {
		return nil, ErrInvalidWindow
	}

	property, err := sc.propertyRepo.GetByID(ctx, req.PropertyID)
	if err != nil {
		return nil, log.Err("property not found", err, "propertyID", req.PropertyID)
	}

	priority := req.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	schedule := &Schedule{
		PropertyID:      property.ID,
		GuestName:       req.GuestName,
		ReservationCode: req.ReservationCode,
		CleaningFee:     property.CleaningFee,
		CheckOut:        req.CheckOut.UTC(),
		CheckIn:         req.CheckIn.UTC(),
		Status:          StatusWaiting,
		Priority:        priority,
		CleanerID:       req.CleanerID,
		IsActive:        true,
	}

	if err := sc.scheduleRepo.Create(ctx, schedule); err != nil {
		return nil, log.Err("failed to create schedule", err, "propertyID", property.ID)
	}

	sc.publishChange(ctx, services.ChangeEvent{
		Type:       services.ChangeInsert,
		ScheduleID: schedule.ID,
		New:        schedule,
	}, sessionID)

	log.Info("schedule created", "scheduleID", schedule.ID, "propertyID", property.ID)
	return schedule, nil
}

// ChangeStatus is the single entry point for moving a schedule through its
// lifecycle. The schedule is re-read before validation so the gate judges
// current state, not what the caller last saw.
func (sc *ScheduleController) ChangeStatus(
	ctx context.Context,
	actor *User,
	id uuid.UUID,
	newStatus Status,
	sessionID string,
) (*Schedule, error) {
	log := sc.log.TraceFromContext(ctx).Function("ChangeStatus")

	if sc.syncService.InFlight() {
		log.Info("status change refused, sync in flight", "scheduleID", id)
		return nil, ErrSyncInFlight
	}

	if !newStatus.Valid() {
		return nil, &ForbiddenError{Reason: fmt.Sprintf("unknown status %q", newStatus)}
	}

	schedule, err := sc.scheduleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	decision := services.CanTransition(schedule.Status, newStatus, actor.Role)
	if !decision.Allowed {
		log.Info(
			"transition denied",
			"scheduleID", id,
			"from", schedule.Status,
			"to", newStatus,
			"role", actor.Role,
			"reason", decision.Reason,
		)
		return nil, &ForbiddenError{Reason: decision.Reason}
	}

	old := *schedule
	updated, err := sc.lifecycle.ApplyTransition(ctx, schedule, newStatus, actor)
	if err != nil {
		return nil, log.Err("failed to apply transition", err, "scheduleID", id)
	}

	sc.publishChange(ctx, services.ChangeEvent{
		Type:       services.ChangeUpdate,
		ScheduleID: updated.ID,
		Old:        &old,
		New:        updated,
	}, sessionID)

	return updated, nil
}

func (sc *ScheduleController) UpdateNotes(
	ctx context.Context,
	actor *User,
	id uuid.UUID,
	req UpdateNotesRequest,
	sessionID string,
) (*Schedule, error) {
	log := sc.log.TraceFromContext(ctx).Function("UpdateNotes")

	if sc.syncService.InFlight() {
		return nil, ErrSyncInFlight
	}

	schedule, err := sc.scheduleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	old := *schedule
	var fields []string
	if req.Notes != nil && *req.Notes != schedule.Notes {
		schedule.Notes = *req.Notes
		fields = append(fields, "notes")
	}
	if req.Observations != nil && *req.Observations != schedule.Observations {
		schedule.Observations = *req.Observations
		fields = append(fields, "observations")
	}

	if len(fields) == 0 {
		return schedule, nil
	}

	if err := sc.scheduleRepo.Save(ctx, schedule); err != nil {
		return nil, log.Err("failed to save notes", err, "scheduleID", id)
	}

	now := time.Now().UTC()
	for _, field := range fields {
		f := field
		event := ScheduleEvent{
			ScheduleID: schedule.ID,
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     ActionNotesEdited,
			FromStatus: schedule.Status,
			ToStatus:   schedule.Status,
			OccurredAt: now,
			Payload:    datatypes.NewJSONType(EventPayload{Field: &f}),
		}
		if err := sc.scheduleRepo.AppendEvent(ctx, &event); err != nil {
			log.Er("failed to append notes event", err, "scheduleID", id, "field", field)
		}
	}

	sc.publishChange(ctx, services.ChangeEvent{
		Type:       services.ChangeUpdate,
		ScheduleID: schedule.ID,
		Old:        &old,
		New:        schedule,
	}, sessionID)

	return schedule, nil
}

func (sc *ScheduleController) UpdateTimes(
	ctx context.Context,
	actor *User,
	id uuid.UUID,
	req UpdateTimesRequest,
	sessionID string,
) (*Schedule, error) {
	log := sc.log.TraceFromContext(ctx).Function("UpdateTimes")

	if sc.syncService.InFlight() {
		return nil, ErrSyncInFlight
	}

	if !req.CheckOut.Before(req.CheckIn) {
		return nil, ErrInvalidWindow
	}

	schedule, err := sc.scheduleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	old := *schedule
	prevCheckOut, prevCheckIn := schedule.CheckOut, schedule.CheckIn
	newCheckOut, newCheckIn := req.CheckOut.UTC(), req.CheckIn.UTC()

	if prevCheckOut.Equal(newCheckOut) && prevCheckIn.Equal(newCheckIn) {
		return schedule, nil
	}

	schedule.CheckOut = newCheckOut
	schedule.CheckIn = newCheckIn

	if err := sc.scheduleRepo.Save(ctx, schedule); err != nil {
		return nil, log.Err("failed to save times", err, "scheduleID", id)
	}

	event := ScheduleEvent{
		ScheduleID: schedule.ID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     ActionTimesEdited,
		FromStatus: schedule.Status,
		ToStatus:   schedule.Status,
		OccurredAt: time.Now().UTC(),
		Payload: datatypes.NewJSONType(EventPayload{
			PrevCheckOut: &prevCheckOut,
			PrevCheckIn:  &prevCheckIn,
			NewCheckOut:  &newCheckOut,
			NewCheckIn:   &newCheckIn,
		}),
	}
	if err := sc.scheduleRepo.AppendEvent(ctx, &event); err != nil {
		log.Er("failed to append times event", err, "scheduleID", id)
	}

	sc.publishChange(ctx, services.ChangeEvent{
		Type:       services.ChangeUpdate,
		ScheduleID: schedule.ID,
		Old:        &old,
		New:        schedule,
	}, sessionID)

	return schedule, nil
}

func (sc *ScheduleController) UpdateAssignment(
	ctx context.Context,
	actor *User,
	id uuid.UUID,
	cleanerID *uuid.UUID,
	sessionID string,
) (*Schedule, error) {
	log := sc.log.TraceFromContext(ctx).Function("UpdateAssignment")

	if sc.syncService.InFlight() {
		return nil, ErrSyncInFlight
	}

	schedule, err := sc.scheduleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	old := *schedule
	prev := schedule.CleanerID
	if uuidPtrEqual(prev, cleanerID) {
		return schedule, nil
	}

	schedule.CleanerID = cleanerID
	schedule.Cleaner = nil

	if err := sc.scheduleRepo.Save(ctx, schedule); err != nil {
		return nil, log.Err("failed to save assignment", err, "scheduleID", id)
	}

	event := ScheduleEvent{
		ScheduleID: schedule.ID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     ActionAssignmentChanged,
		FromStatus: schedule.Status,
		ToStatus:   schedule.Status,
		OccurredAt: time.Now().UTC(),
		Payload: datatypes.NewJSONType(EventPayload{
			PrevCleanerID: prev,
			NewCleanerID:  cleanerID,
		}),
	}
	if err := sc.scheduleRepo.AppendEvent(ctx, &event); err != nil {
		log.Er("failed to append assignment event", err, "scheduleID", id)
	}

	sc.publishChange(ctx, services.ChangeEvent{
		Type:       services.ChangeUpdate,
		ScheduleID: schedule.ID,
		Old:        &old,
		New:        schedule,
	}, sessionID)

	return schedule, nil
}

// SetChecklistItem ticks or unticks one item on the frozen snapshot.
// Concurrent edits to the same snapshot are last-writer-wins; the change feed
// ignores them for viewers mid-cleaning, so neither editor's screen resets.
func (sc *ScheduleController) SetChecklistItem(
	ctx context.Context,
	actor *User,
	id uuid.UUID,
	itemID uuid.UUID,
	done bool,
	sessionID string,
) (*Schedule, error) {
	log := sc.log.TraceFromContext(ctx).Function("SetChecklistItem")

	if sc.syncService.InFlight() {
		return nil, ErrSyncInFlight
	}

	schedule, err := sc.scheduleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !schedule.ChecklistLoaded() {
		return nil, ErrChecklistNotLoaded
	}

	old := *schedule
	snapshot := schedule.Checklist.Data()
	found := false
	for i := range snapshot.Items {
		if snapshot.Items[i].ID == itemID {
			if snapshot.Items[i].Done == done {
				return schedule, nil
			}
			snapshot.Items[i].Done = done
			found = true
			break
		}
	}
	if !found {
		return nil, ErrChecklistItemNotFound
	}

	schedule.Checklist = datatypes.NewJSONType(snapshot)

	if err := sc.scheduleRepo.Save(ctx, schedule); err != nil {
		return nil, log.Err("failed to save checklist item", err, "scheduleID", id, "itemID", itemID)
	}

	sc.publishChange(ctx, services.ChangeEvent{
		Type:       services.ChangeUpdate,
		ScheduleID: schedule.ID,
		Old:        &old,
		New:        schedule,
	}, sessionID)

	return schedule, nil
}

func (sc *ScheduleController) Deactivate(
	ctx context.Context,
	actor *User,
	id uuid.UUID,
	sessionID string,
) error {
	log := sc.log.TraceFromContext(ctx).Function("Deactivate")

	if sc.syncService.InFlight() {
		return ErrSyncInFlight
	}

	schedule, err := sc.scheduleRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := sc.scheduleRepo.Deactivate(ctx, id); err != nil {
		return log.Err("failed to deactivate schedule", err, "scheduleID", id)
	}

	sc.publishChange(ctx, services.ChangeEvent{
		Type:       services.ChangeDelete,
		ScheduleID: id,
		Old:        schedule,
	}, sessionID)

	log.Info("schedule deactivated", "scheduleID", id, "actorID", actor.ID)
	return nil
}

// publishChange arms the writer's suppress-next flag, then broadcasts the
// change. Arming must happen before the publish or the writer could receive
// its own echo first.
func (sc *ScheduleController) publishChange(
	ctx context.Context,
	change services.ChangeEvent,
	sessionID string,
) {
	log := sc.log.TraceFromContext(ctx).Function("publishChange")

	if sessionID != "" {
		change.Origin = sessionID
		sc.suppress.Arm(sessionID, change.ScheduleID)
	}

	if err := sc.eventBus.Publish(events.SCHEDULE_CHANGES, events.SCHEDULE_CHANGE, change); err != nil {
		log.Er("failed to publish schedule change", err, "scheduleID", change.ScheduleID)
	}
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
