package services

import (
	"context"
	"time"

	"turnkeep/internal/metrics"
	. "turnkeep/internal/models"
	"turnkeep/internal/repositories"
	"turnkeep/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LifecycleService applies approved status transitions. Validation is the
// caller's job (CanTransition); this service owns the stamps, the checklist
// freeze, the history append, and persistence ordering (store first, then
// return the merged schedule).
type LifecycleService struct {
	scheduleRepo  repositories.ScheduleRepository
	checklistRepo repositories.ChecklistRepository
	propertyRepo  repositories.PropertyRepository
	log           logger.Logger
}

func NewLifecycleService(
	scheduleRepo repositories.ScheduleRepository,
	checklistRepo repositories.ChecklistRepository,
	propertyRepo repositories.PropertyRepository,
) *LifecycleService {
	return &LifecycleService{
		scheduleRepo:  scheduleRepo,
		checklistRepo: checklistRepo,
		propertyRepo:  propertyRepo,
		log:           logger.New("lifecycleService"),
	}
}

// ApplyTransition moves the schedule to newStatus and appends exactly one
// history event. Calling it again when the schedule is already in newStatus
// is a no-op: no re-stamped instants, no duplicate history row. The guard is
// the previous-status comparison, not caller discipline.
func (s *LifecycleService) ApplyTransition(
	ctx context.Context,
	schedule *Schedule,
	newStatus Status,
	actor *User,
) (*Schedule, error) {
	log := s.log.TraceFromContext(ctx).Function("ApplyTransition")

	if schedule.Status == newStatus {
		log.Info(
			"schedule already in target status, skipping",
			"scheduleID", schedule.ID,
			"status", newStatus,
		)
		return schedule, nil
	}

	now := time.Now().UTC()
	previous := schedule.Status
	prevStartedAt := schedule.StartedAt
	prevCompletedAt := schedule.CompletedAt
	prevCleanerID := schedule.CleanerID
	prevChecklist := schedule.Checklist

	event := ScheduleEvent{
		ScheduleID: schedule.ID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     ActionStatusChanged,
		FromStatus: previous,
		ToStatus:   newStatus,
		OccurredAt: now,
	}

	if newStatus.Index() < previous.Index() {
		event.Action = ActionReverted
	}

	if newStatus == StatusCleaning && previous != StatusCleaning {
		schedule.StartedAt = &now

		if schedule.CleanerID == nil {
			actorID := actor.ID
			schedule.CleanerID = &actorID
		}

		if err := s.freezeChecklist(ctx, schedule, now); err != nil {
			// A missing template is not an error; a failed lookup is, but
			// cleaning still starts with an empty checklist.
			log.Warn("failed to resolve checklist template", "scheduleID", schedule.ID, "error", err)
		}
	}

	if newStatus == StatusCompleted && previous != StatusCompleted {
		schedule.CompletedAt = &now

		if delay := now.Sub(schedule.CheckIn); delay > 0 {
			delayMinutes := int64(delay.Minutes())
			event.Action = ActionCompletedWithDelay
			event.Payload = datatypes.NewJSONType(EventPayload{DelayMinutes: &delayMinutes})
			log.Info(
				"schedule completed past its check-in deadline",
				"scheduleID", schedule.ID,
				"delayMinutes", delayMinutes,
			)
		}
	}

	schedule.Status = newStatus

	// One transaction: the status row and its history event land together
	// or not at all.
	if err := s.scheduleRepo.SaveWithEvent(ctx, schedule, &event); err != nil {
		// Restore every stamped field so the caller's copy doesn't drift
		// from the store.
		schedule.Status = previous
		schedule.StartedAt = prevStartedAt
		schedule.CompletedAt = prevCompletedAt
		schedule.CleanerID = prevCleanerID
		schedule.Checklist = prevChecklist
		return nil, err
	}

	schedule.History = append(schedule.History, event)
	metrics.TransitionsTotal.WithLabelValues(string(newStatus), string(event.Action)).Inc()

	log.Info(
		"schedule transitioned",
		"scheduleID", schedule.ID,
		"from", previous,
		"to", newStatus,
		"actorID", actor.ID,
		"action", event.Action,
	)

	return schedule, nil
}

// freezeChecklist snapshots the property's active template onto the schedule.
// Later template edits never touch schedules frozen before them.
func (s *LifecycleService) freezeChecklist(
	ctx context.Context,
	schedule *Schedule,
	at time.Time,
) error {
	if schedule.ChecklistLoaded() {
		return nil
	}

	template, err := s.resolveTemplate(ctx, schedule.PropertyID)
	if err != nil {
		schedule.Checklist = datatypes.NewJSONType(ChecklistSnapshot{LoadedAt: at})
		return err
	}

	schedule.Checklist = datatypes.NewJSONType(SnapshotFrom(template, at))
	return nil
}

// resolveTemplate picks the template to freeze: the property's explicit
// default when it still points at an active template, else the newest active
// template by scope. An inactive or dangling default falls through rather
// than blocking the cleaning.
func (s *LifecycleService) resolveTemplate(
	ctx context.Context,
	propertyID uuid.UUID,
) (*ChecklistTemplate, error) {
	property, err := s.propertyRepo.GetByID(ctx, propertyID)
	if err == nil && property.DefaultChecklistID != nil {
		template, err := s.checklistRepo.GetByID(ctx, *property.DefaultChecklistID)
		if err == nil && template != nil && template.IsActive {
			return template, nil
		}
	}

	return s.checklistRepo.GetActiveForProperty(ctx, propertyID)
}
