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

const (
	CHECKLIST_CACHE_PREFIX = "checklist_active"
	CHECKLIST_CACHE_EXPIRY = time.Hour
)

type ChecklistRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*ChecklistTemplate, error)
	// GetActiveForProperty returns the newest active template scoped to the
	// property, falling back to the newest active global template. The
	// property's explicit DefaultChecklistID preference is applied by the
	// caller before this fallback. Returns (nil, nil) when nothing active
	// exists.
	GetActiveForProperty(ctx context.Context, propertyID uuid.UUID) (*ChecklistTemplate, error)
	GetAll(ctx context.Context) ([]*ChecklistTemplate, error)
	Create(ctx context.Context, template *ChecklistTemplate) error
	Update(ctx context.Context, template *ChecklistTemplate) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type checklistRepository struct {
	db  database.DB
	log logger.Logger
}

func NewChecklistRepository(db database.DB) ChecklistRepository {
	return &checklistRepository{
		db:  db,
		log: logger.New("checklistRepository"),
	}
}

func (r *checklistRepository) GetByID(ctx context.Context, id uuid.UUID) (*ChecklistTemplate, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByID")

	template, err := gorm.G[*ChecklistTemplate](r.db.SQL).
		Preload("Items", func(db gorm.PreloadBuilder) error {
			db.Order("position ASC")
			return nil
		}).
		Where(BaseUUIDModel{ID: id}).
		First(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, log.Err("failed to get checklist template", err, "templateID", id)
	}

	return template, nil
}

func (r *checklistRepository) GetActiveForProperty(
	ctx context.Context,
	propertyID uuid.UUID,
) (*ChecklistTemplate, error) {
	log := r.log.TraceFromContext(ctx).Function("GetActiveForProperty")

	var cached ChecklistTemplate
	found, err := database.NewCacheBuilder(r.db.Cache.General, propertyID).
		WithContext(ctx).
		WithHash(CHECKLIST_CACHE_PREFIX).
		Get(&cached)
	if err != nil {
		log.Warn("failed to get checklist template from cache", "propertyID", propertyID, "error", err)
	}
	if found {
		return &cached, nil
	}

	// Newest active template scoped to the property, then newest active
	// global template.
	template, err := gorm.G[*ChecklistTemplate](r.db.SQL).
		Preload("Items", func(db gorm.PreloadBuilder) error {
			db.Order("position ASC")
			return nil
		}).
		Where("is_active = ? AND (property_id = ? OR property_id IS NULL)", true, propertyID).
		Order("is_default DESC, (property_id IS NOT NULL) DESC, created_at DESC").
		First(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, log.Err("failed to get active checklist template", err, "propertyID", propertyID)
	}

	r.cacheResolved(ctx, propertyID, template)

	return template, nil
}

// cacheableTemplate reports whether a resolution result may be cached under
// the property's key. Only templates scoped to the requesting property
// qualify: global templates are never cached, because their edits cannot
// enumerate the property keys they would have to invalidate.
func cacheableTemplate(propertyID uuid.UUID, template *ChecklistTemplate) bool {
	if template == nil || template.PropertyID == nil {
		return false
	}
	return *template.PropertyID == propertyID
}

func (r *checklistRepository) cacheResolved(
	ctx context.Context,
	propertyID uuid.UUID,
	template *ChecklistTemplate,
) {
	log := r.log.Function("cacheResolved")

	if !cacheableTemplate(propertyID, template) {
		return
	}

	if err := database.NewCacheBuilder(r.db.Cache.General, propertyID).
		WithContext(ctx).
		WithHash(CHECKLIST_CACHE_PREFIX).
		WithStruct(template).
		WithTTL(CHECKLIST_CACHE_EXPIRY).
		Set(); err != nil {
		log.Warn("failed to cache checklist template", "propertyID", propertyID, "error", err)
	}
}

func (r *checklistRepository) GetAll(ctx context.Context) ([]*ChecklistTemplate, error) {
	log := r.log.TraceFromContext(ctx).Function("GetAll")

	templates, err := gorm.G[*ChecklistTemplate](r.db.SQL).
		Preload("Items", func(db gorm.PreloadBuilder) error {
			db.Order("position ASC")
			return nil
		}).
		Order("created_at DESC").
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to get checklist templates", err)
	}

	return templates, nil
}

func (r *checklistRepository) Create(ctx context.Context, template *ChecklistTemplate) error {
	log := r.log.TraceFromContext(ctx).Function("Create")

	if err := r.db.SQLWithContext(ctx).Create(template).Error; err != nil {
		return log.Err("failed to create checklist template", err, "name", template.Name)
	}

	r.clearCache(ctx, template.PropertyID)

	return nil
}

func (r *checklistRepository) Update(ctx context.Context, template *ChecklistTemplate) error {
	log := r.log.TraceFromContext(ctx).Function("Update")

	// The prior row's scope is invalidated too: an update can move the
	// template to another property or make it global.
	existing, err := r.GetByID(ctx, template.ID)
	if err != nil {
		return err
	}

	if err := r.db.SQLWithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(template).Error; err != nil {
		return log.Err("failed to update checklist template", err, "templateID", template.ID)
	}

	r.clearCache(ctx, existing.PropertyID)
	r.clearCache(ctx, template.PropertyID)

	return nil
}

func (r *checklistRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	log := r.log.TraceFromContext(ctx).Function("Deactivate")

	template, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if _, err := gorm.G[ChecklistTemplate](r.db.SQL).
		Where(BaseUUIDModel{ID: id}).
		Update(ctx, "is_active", false); err != nil {
		return log.Err("failed to deactivate checklist template", err, "templateID", id)
	}

	r.clearCache(ctx, template.PropertyID)

	return nil
}

// clearCache drops the resolved-template entry for one property. Global
// templates have no entry to drop (see cacheResolved).
func (r *checklistRepository) clearCache(ctx context.Context, propertyID *uuid.UUID) {
	log := r.log.Function("clearCache")

	if propertyID == nil {
		return
	}

	if err := database.NewCacheBuilder(r.db.Cache.General, *propertyID).
		WithContext(ctx).
		WithHash(CHECKLIST_CACHE_PREFIX).
		Delete(); err != nil {
		log.Warn("failed to clear checklist template cache", "propertyID", propertyID, "error", err)
	}
}
