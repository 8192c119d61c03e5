package repositories

import (
	"context"
	"turnkeep/internal/database"
	. "turnkeep/internal/models"
	"turnkeep/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PropertyRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Property, error)
	GetAllActive(ctx context.Context) ([]*Property, error)
	Create(ctx context.Context, property *Property) error
	Update(ctx context.Context, property *Property) error
}

type propertyRepository struct {
	db  database.DB
	log logger.Logger
}

func NewPropertyRepository(db database.DB) PropertyRepository {
	return &propertyRepository{
		db:  db,
		log: logger.New("propertyRepository"),
	}
}

func (r *propertyRepository) GetByID(ctx context.Context, id uuid.UUID) (*Property, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByID")

	property, err := gorm.G[*Property](r.db.SQL).
		Where(BaseUUIDModel{ID: id}).
		First(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, log.Err("failed to get property", err, "propertyID", id)
	}

	return property, nil
}

func (r *propertyRepository) GetAllActive(ctx context.Context) ([]*Property, error) {
	log := r.log.TraceFromContext(ctx).Function("GetAllActive")

	properties, err := gorm.G[*Property](r.db.SQL).
		Where(Property{IsActive: true}).
		Order("name ASC").
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to get active properties", err)
	}

	return properties, nil
}

func (r *propertyRepository) Create(ctx context.Context, property *Property) error {
	log := r.log.TraceFromContext(ctx).Function("Create")

	if err := r.db.SQLWithContext(ctx).Create(property).Error; err != nil {
		return log.Err("failed to create property", err, "name", property.Name)
	}

	return nil
}

func (r *propertyRepository) Update(ctx context.Context, property *Property) error {
	log := r.log.TraceFromContext(ctx).Function("Update")

	if err := r.db.SQLWithContext(ctx).Save(property).Error; err != nil {
		return log.Err("failed to update property", err, "propertyID", property.ID)
	}

	// A changed DefaultChecklistID invalidates the resolved-template cache
	// for this property.
	if err := database.NewCacheBuilder(r.db.Cache.General, property.ID).
		WithContext(ctx).
		WithHash(CHECKLIST_CACHE_PREFIX).
		Delete(); err != nil {
		log.Warn("failed to clear checklist template cache", "propertyID", property.ID, "error", err)
	}

	return nil
}
