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

type CalendarSourceRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*CalendarSource, error)
	GetAllActive(ctx context.Context) ([]*CalendarSource, error)
	Create(ctx context.Context, source *CalendarSource) error
	Update(ctx context.Context, source *CalendarSource) error
	MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error
}

type calendarSourceRepository struct {
	db  database.DB
	log logger.Logger
}

func NewCalendarSourceRepository(db database.DB) CalendarSourceRepository {
	return &calendarSourceRepository{
		db:  db,
		log: logger.New("calendarSourceRepository"),
	}
}

func (r *calendarSourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*CalendarSource, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByID")

	source, err := gorm.G[*CalendarSource](r.db.SQL).
		Where(BaseUUIDModel{ID: id}).
		First(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, log.Err("failed to get calendar source", err, "sourceID", id)
	}

	return source, nil
}

func (r *calendarSourceRepository) GetAllActive(ctx context.Context) ([]*CalendarSource, error) {
	log := r.log.TraceFromContext(ctx).Function("GetAllActive")

	sources, err := gorm.G[*CalendarSource](r.db.SQL).
		Where(CalendarSource{IsActive: true}).
		Order("name ASC").
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to get active calendar sources", err)
	}

	return sources, nil
}

func (r *calendarSourceRepository) Create(ctx context.Context, source *CalendarSource) error {
	log := r.log.TraceFromContext(ctx).Function("Create")

	if err := r.db.SQLWithContext(ctx).Create(source).Error; err != nil {
		return log.Err("failed to create calendar source", err, "name", source.Name)
	}

	return nil
}

func (r *calendarSourceRepository) Update(ctx context.Context, source *CalendarSource) error {
	log := r.log.TraceFromContext(ctx).Function("Update")

	if err := r.db.SQLWithContext(ctx).Save(source).Error; err != nil {
		return log.Err("failed to update calendar source", err, "sourceID", source.ID)
	}

	return nil
}

func (r *calendarSourceRepository) MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	log := r.log.TraceFromContext(ctx).Function("MarkSynced")

	if _, err := gorm.G[CalendarSource](r.db.SQL).
		Where(BaseUUIDModel{ID: id}).
		Update(ctx, "last_sync_at", at); err != nil {
		return log.Err("failed to mark calendar source synced", err, "sourceID", id)
	}

	return nil
}
