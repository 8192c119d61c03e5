package repositories

import (
	"context"
	"time"
	"turnkeep/internal/database"
	. "turnkeep/internal/models"
	"turnkeep/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScheduleFilter narrows List results. Zero values mean "no constraint".
type ScheduleFilter struct {
	Status     Status
	PropertyID *uuid.UUID
	CleanerID  *uuid.UUID
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

type ScheduleRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
	List(ctx context.Context, filter ScheduleFilter) ([]*Schedule, error)
	Create(ctx context.Context, schedule *Schedule) error
	Save(ctx context.Context, schedule *Schedule) error
	// SaveWithEvent persists the schedule and its history row in one
	// transaction; neither lands without the other.
	SaveWithEvent(ctx context.Context, schedule *Schedule, event *ScheduleEvent) error
	// AppendEvent inserts one history row. History is append-only: rows are
	// never updated or deleted.
	AppendEvent(ctx context.Context, event *ScheduleEvent) error
	History(ctx context.Context, scheduleID uuid.UUID) ([]*ScheduleEvent, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type scheduleRepository struct {
	db  database.DB
	log logger.Logger
}

func NewScheduleRepository(db database.DB) ScheduleRepository {
	return &scheduleRepository{
		db:  db,
		log: logger.New("scheduleRepository"),
	}
}

func (r *scheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByID")

	schedule, err := gorm.G[*Schedule](r.db.SQL).
		Preload("Property", nil).
		Preload("Cleaner", nil).
		Preload("History", func(db gorm.PreloadBuilder) error {
			db.Order("occurred_at ASC")
			return nil
		}).
		Where(BaseUUIDModel{ID: id}).
		First(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, log.Err("failed to get schedule", err, "scheduleID", id)
	}

	return schedule, nil
}

func (r *scheduleRepository) List(
	ctx context.Context,
	filter ScheduleFilter,
) ([]*Schedule, error) {
	log := r.log.TraceFromContext(ctx).Function("List")

	query := r.db.SQLWithContext(ctx).
		Model(&Schedule{}).
		Where("is_active = ?", true)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PropertyID != nil {
		query = query.Where("property_id = ?", *filter.PropertyID)
	}
	if filter.CleanerID != nil {
		query = query.Where("cleaner_id = ?", *filter.CleanerID)
	}
	if filter.From != nil {
		query = query.Where("check_out >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("check_in <= ?", *filter.To)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var schedules []*Schedule
	if err := query.
		Preload("Property").
		Preload("Cleaner").
		Order("check_out ASC").
		Find(&schedules).Error; err != nil {
		return nil, log.Err("failed to list schedules", err)
	}

	return schedules, nil
}

func (r *scheduleRepository) Create(ctx context.Context, schedule *Schedule) error {
	log := r.log.TraceFromContext(ctx).Function("Create")

	if err := r.db.SQLWithContext(ctx).Create(schedule).Error; err != nil {
		return log.Err(
			"failed to create schedule",
			err,
			"propertyID", schedule.PropertyID,
			"reservationCode", schedule.ReservationCode,
		)
	}

	return nil
}

func (r *scheduleRepository) Save(ctx context.Context, schedule *Schedule) error {
	log := r.log.TraceFromContext(ctx).Function("Save")

	if err := r.db.SQLWithContext(ctx).
		Omit("Property", "Cleaner", "Source", "History").
		Save(schedule).Error; err != nil {
		return log.Err("failed to save schedule", err, "scheduleID", schedule.ID)
	}

	return nil
}

func (r *scheduleRepository) SaveWithEvent(
	ctx context.Context,
	schedule *Schedule,
	event *ScheduleEvent,
) error {
	log := r.log.TraceFromContext(ctx).Function("SaveWithEvent")

	err := r.db.SQLWithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Omit("Property", "Cleaner", "Source", "History").
			Save(schedule).Error; err != nil {
			return err
		}
		return tx.Create(event).Error
	})
	if err != nil {
		return log.Err(
			"failed to save schedule with event",
			err,
			"scheduleID", schedule.ID,
			"action", event.Action,
		)
	}

	return nil
}

func (r *scheduleRepository) AppendEvent(ctx context.Context, event *ScheduleEvent) error {
	log := r.log.TraceFromContext(ctx).Function("AppendEvent")

	if err := r.db.SQLWithContext(ctx).Create(event).Error; err != nil {
		return log.Err(
			"failed to append schedule event",
			err,
			"scheduleID", event.ScheduleID,
			"action", event.Action,
		)
	}

	return nil
}

func (r *scheduleRepository) History(
	ctx context.Context,
	scheduleID uuid.UUID,
) ([]*ScheduleEvent, error) {
	log := r.log.TraceFromContext(ctx).Function("History")

	events, err := gorm.G[*ScheduleEvent](r.db.SQL).
		Where(ScheduleEvent{ScheduleID: scheduleID}).
		Order("occurred_at ASC").
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to get schedule history", err, "scheduleID", scheduleID)
	}

	return events, nil
}

func (r *scheduleRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	log := r.log.TraceFromContext(ctx).Function("Deactivate")

	rows, err := gorm.G[Schedule](r.db.SQL).
		Where(BaseUUIDModel{ID: id}).
		Update(ctx, "is_active", false)
	if err != nil {
		return log.Err("failed to deactivate schedule", err, "scheduleID", id)
	}

	if rows == 0 {
		return log.Error("schedule not found", "scheduleID", id)
	}

	return nil
}
