package propertyController

import (
	"context"
	"errors"

	. "turnkeep/internal/models"
	"turnkeep/internal/repositories"
	"turnkeep/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrMissingName = errors.New("a property needs a name")

type PropertyController struct {
	propertyRepo  repositories.PropertyRepository
	checklistRepo repositories.ChecklistRepository
	log           logger.Logger
}

type PropertyControllerInterface interface {
	GetAll(ctx context.Context) ([]*Property, error)
	Get(ctx context.Context, id uuid.UUID) (*Property, error)
	Create(ctx context.Context, req PropertyRequest) (*Property, error)
	Update(ctx context.Context, id uuid.UUID, req PropertyRequest) (*Property, error)
}

// PropertyRequest carries property fields for create and update. Nil pointer
// fields on update mean "leave unchanged".
type PropertyRequest struct {
	Name               string           `json:"name"`
	Address            *string          `json:"address,omitempty"`
	Timezone           *string          `json:"timezone,omitempty"`
	CleaningFee        *decimal.Decimal `json:"cleaningFee,omitempty"`
	DefaultChecklistID *uuid.UUID       `json:"defaultChecklistId,omitempty"`
	IsActive           *bool            `json:"isActive,omitempty"`
}

func New(repos repositories.Repository) PropertyControllerInterface {
	return &PropertyController{
		propertyRepo:  repos.Property,
		checklistRepo: repos.Checklist,
		log:           logger.New("propertyController"),
	}
}

func (pc *PropertyController) GetAll(ctx context.Context) ([]*Property, error) {
	return pc.propertyRepo.GetAllActive(ctx)
}

func (pc *PropertyController) Get(ctx context.Context, id uuid.UUID) (*Property, error) {
	return pc.propertyRepo.GetByID(ctx, id)
}

func (pc *PropertyController) Create(
	ctx context.Context,
	req PropertyRequest,
) (*Property, error) {
	log := pc.log.TraceFromContext(ctx).Function("Create")

	if req.Name == "" {
		return nil, ErrMissingName
	}
	if err := pc.checkChecklist(ctx, req.DefaultChecklistID); err != nil {
		return nil, err
	}

	property := &Property{
		Name:               req.Name,
		Timezone:           "UTC",
		DefaultChecklistID: req.DefaultChecklistID,
		IsActive:           true,
	}
	if req.Address != nil {
		property.Address = *req.Address
	}
	if req.Timezone != nil {
		property.Timezone = *req.Timezone
	}
	if req.CleaningFee != nil {
		property.CleaningFee = *req.CleaningFee
	}

	if err := pc.propertyRepo.Create(ctx, property); err != nil {
		return nil, log.Err("failed to create property", err, "name", req.Name)
	}

	log.Info("property created", "propertyID", property.ID, "name", property.Name)
	return property, nil
}

// Update edits an existing property. Changing the default checklist never
// touches snapshots already frozen onto schedules.
func (pc *PropertyController) Update(
	ctx context.Context,
	id uuid.UUID,
	req PropertyRequest,
) (*Property, error) {
	log := pc.log.TraceFromContext(ctx).Function("Update")

	property, err := pc.propertyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		property.Name = req.Name
	}
	if req.Address != nil {
		property.Address = *req.Address
	}
	if req.Timezone != nil {
		property.Timezone = *req.Timezone
	}
	if req.CleaningFee != nil {
		property.CleaningFee = *req.CleaningFee
	}
	if req.DefaultChecklistID != nil {
		if err := pc.checkChecklist(ctx, req.DefaultChecklistID); err != nil {
			return nil, err
		}
		property.DefaultChecklistID = req.DefaultChecklistID
	}
	if req.IsActive != nil {
		property.IsActive = *req.IsActive
	}

	if err := pc.propertyRepo.Update(ctx, property); err != nil {
		return nil, log.Err("failed to update property", err, "propertyID", id)
	}

	return property, nil
}

func (pc *PropertyController) checkChecklist(
	ctx context.Context,
	checklistID *uuid.UUID,
) error {
	if checklistID == nil {
		return nil
	}
	_, err := pc.checklistRepo.GetByID(ctx, *checklistID)
	return err
}
