package checklistController

import (
	"context"
	"errors"

	. "turnkeep/internal/models"
	"turnkeep/internal/repositories"
	"turnkeep/pkg/logger"

	"github.com/google/uuid"
)

var ErrNoItems = errors.New("a checklist template needs at least one item")

type ChecklistController struct {
	checklistRepo repositories.ChecklistRepository
	propertyRepo  repositories.PropertyRepository
	log           logger.Logger
}

type ChecklistControllerInterface interface {
	Get(ctx context.Context, id uuid.UUID) (*ChecklistTemplate, error)
	GetAll(ctx context.Context) ([]*ChecklistTemplate, error)
	Create(ctx context.Context, req TemplateRequest) (*ChecklistTemplate, error)
	Update(ctx context.Context, id uuid.UUID, req TemplateRequest) (*ChecklistTemplate, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type TemplateRequest struct {
	Name       string            `json:"name"`
	PropertyID *uuid.UUID        `json:"propertyId,omitempty"`
	IsDefault  bool              `json:"isDefault"`
	Items      []TemplateItemReq `json:"items"`
}

type TemplateItemReq struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Position int    `json:"position"`
}

func New(repos repositories.Repository) ChecklistControllerInterface {
	return &ChecklistController{
		checklistRepo: repos.Checklist,
		propertyRepo:  repos.Property,
		log:           logger.New("checklistController"),
	}
}

func (cc *ChecklistController) Get(
	ctx context.Context,
	id uuid.UUID,
) (*ChecklistTemplate, error) {
	return cc.checklistRepo.GetByID(ctx, id)
}

func (cc *ChecklistController) GetAll(ctx context.Context) ([]*ChecklistTemplate, error) {
	return cc.checklistRepo.GetAll(ctx)
}

// Create builds a new template. Schedules already frozen keep their snapshot;
// templates only affect cleanings that start after the change.
func (cc *ChecklistController) Create(
	ctx context.Context,
	req TemplateRequest,
) (*ChecklistTemplate, error) {
	log := cc.log.TraceFromContext(ctx).Function("Create")

	template, err := cc.buildTemplate(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := cc.checklistRepo.Create(ctx, template); err != nil {
		return nil, log.Err("failed to create checklist template", err, "name", req.Name)
	}

	log.Info("checklist template created", "templateID", template.ID, "items", len(template.Items))
	return template, nil
}

func (cc *ChecklistController) Update(
	ctx context.Context,
	id uuid.UUID,
	req TemplateRequest,
) (*ChecklistTemplate, error) {
	log := cc.log.TraceFromContext(ctx).Function("Update")

	existing, err := cc.checklistRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	template, err := cc.buildTemplate(ctx, req)
	if err != nil {
		return nil, err
	}
	template.ID = existing.ID
	template.IsActive = existing.IsActive
	for i := range template.Items {
		template.Items[i].TemplateID = existing.ID
	}

	if err := cc.checklistRepo.Update(ctx, template); err != nil {
		return nil, log.Err("failed to update checklist template", err, "templateID", id)
	}

	return template, nil
}

func (cc *ChecklistController) Deactivate(ctx context.Context, id uuid.UUID) error {
	log := cc.log.TraceFromContext(ctx).Function("Deactivate")

	if err := cc.checklistRepo.Deactivate(ctx, id); err != nil {
		return log.Err("failed to deactivate checklist template", err, "templateID", id)
	}
	return nil
}

func (cc *ChecklistController) buildTemplate(
	ctx context.Context,
	req TemplateRequest,
) (*ChecklistTemplate, error) {
	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}

	if req.PropertyID != nil {
		if _, err := cc.propertyRepo.GetByID(ctx, *req.PropertyID); err != nil {
			return nil, err
		}
	}

	template := &ChecklistTemplate{
		Name:       req.Name,
		PropertyID: req.PropertyID,
		IsDefault:  req.IsDefault,
		IsActive:   true,
	}

	for i, item := range req.Items {
		if item.Title == "" {
			return nil, ErrNoItems
		}
		position := item.Position
		if position == 0 {
			position = i + 1
		}
		template.Items = append(template.Items, ChecklistTemplateItem{
			Title:    item.Title,
			Category: item.Category,
			Position: position,
		})
	}

	return template, nil
}
