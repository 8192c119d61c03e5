package syncController

import (
	"context"
	"errors"
	"time"

	"turnkeep/config"
	. "turnkeep/internal/models"
	"turnkeep/internal/repositories"
	"turnkeep/internal/services"
	"turnkeep/pkg/logger"

	"github.com/google/uuid"
)

var ErrMissingSourceFields = errors.New("a calendar source needs a name, a url, and a property")

type SyncController struct {
	sourceRepo   repositories.CalendarSourceRepository
	propertyRepo repositories.PropertyRepository
	syncService  *services.SyncService
	config       config.Config
	log          logger.Logger
}

type SyncControllerInterface interface {
	StartSync(ctx context.Context, actor *User, sourceID *uuid.UUID) (*services.SyncResult, error)
	RecentRuns(ctx context.Context) []services.SyncRun
	InFlight() bool
	Sources(ctx context.Context) ([]*CalendarSource, error)
	CreateSource(ctx context.Context, req SourceRequest) (*CalendarSource, error)
	UpdateSource(ctx context.Context, id uuid.UUID, req SourceRequest) (*CalendarSource, error)
}

// SourceRequest carries calendar feed fields for create and update. Nil
// pointer fields on update mean "leave unchanged".
type SourceRequest struct {
	Name       string     `json:"name"`
	Provider   *string    `json:"provider,omitempty"`
	URL        string     `json:"url"`
	PropertyID *uuid.UUID `json:"propertyId,omitempty"`
	IsActive   *bool      `json:"isActive,omitempty"`
}

func New(
	repos repositories.Repository,
	services services.Service,
	config config.Config,
) SyncControllerInterface {
	return &SyncController{
		sourceRepo:   repos.CalendarSource,
		propertyRepo: repos.Property,
		syncService:  services.Sync,
		config:       config,
		log:          logger.New("syncController"),
	}
}

// StartSync kicks off one sync attempt. A (nil, nil) result means a sync was
// already in flight and this request was dropped without a trace.
func (sc *SyncController) StartSync(
	ctx context.Context,
	actor *User,
	sourceID *uuid.UUID,
) (*services.SyncResult, error) {
	log := sc.log.TraceFromContext(ctx).Function("StartSync")

	if sourceID != nil {
		if _, err := sc.sourceRepo.GetByID(ctx, *sourceID); err != nil {
			return nil, log.Err("calendar source not found", err, "sourceID", *sourceID)
		}
	}

	result, err := sc.syncService.StartSync(ctx, actor, sourceID)
	if err != nil {
		return nil, log.Err("sync attempt failed", err, "actorID", actor.ID)
	}

	if result != nil {
		sc.stampSources(ctx, sourceID)
	}

	return result, nil
}

// stampSources records the last-synced time on the source a successful run
// covered, or on every active source for a full sync. Stamping failures only
// log; the sync itself already succeeded.
func (sc *SyncController) stampSources(ctx context.Context, sourceID *uuid.UUID) {
	log := sc.log.TraceFromContext(ctx).Function("stampSources")
	now := time.Now().UTC()

	if sourceID != nil {
		if err := sc.sourceRepo.MarkSynced(ctx, *sourceID, now); err != nil {
			log.Er("failed to stamp calendar source", err, "sourceID", *sourceID)
		}
		return
	}

	sources, err := sc.sourceRepo.GetAllActive(ctx)
	if err != nil {
		log.Er("failed to list calendar sources for stamping", err)
		return
	}
	for _, source := range sources {
		if err := sc.sourceRepo.MarkSynced(ctx, source.ID, now); err != nil {
			log.Er("failed to stamp calendar source", err, "sourceID", source.ID)
		}
	}
}

func (sc *SyncController) RecentRuns(ctx context.Context) []services.SyncRun {
	return sc.syncService.RecentRuns()
}

func (sc *SyncController) InFlight() bool {
	return sc.syncService.InFlight()
}

func (sc *SyncController) Sources(ctx context.Context) ([]*CalendarSource, error) {
	return sc.sourceRepo.GetAllActive(ctx)
}

func (sc *SyncController) CreateSource(
	ctx context.Context,
	req SourceRequest,
) (*CalendarSource, error) {
	log := sc.log.TraceFromContext(ctx).Function("CreateSource")

	if req.Name == "" || req.URL == "" {
		return nil, ErrMissingSourceFields
	}
	if req.PropertyID == nil {
		return nil, ErrMissingSourceFields
	}
	if _, err := sc.propertyRepo.GetByID(ctx, *req.PropertyID); err != nil {
		return nil, err
	}

	source := &CalendarSource{
		Name:       req.Name,
		URL:        req.URL,
		PropertyID: *req.PropertyID,
		IsActive:   true,
	}
	if req.Provider != nil {
		source.Provider = *req.Provider
	}

	if err := sc.sourceRepo.Create(ctx, source); err != nil {
		return nil, log.Err("failed to create calendar source", err, "name", req.Name)
	}

	log.Info("calendar source created", "sourceID", source.ID, "propertyID", source.PropertyID)
	return source, nil
}

func (sc *SyncController) UpdateSource(
	ctx context.Context,
	id uuid.UUID,
	req SourceRequest,
) (*CalendarSource, error) {
	log := sc.log.TraceFromContext(ctx).Function("UpdateSource")

	source, err := sc.sourceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		source.Name = req.Name
	}
	if req.URL != "" {
		source.URL = req.URL
	}
	if req.Provider != nil {
		source.Provider = *req.Provider
	}
	if req.PropertyID != nil {
		if _, err := sc.propertyRepo.GetByID(ctx, *req.PropertyID); err != nil {
			return nil, err
		}
		source.PropertyID = *req.PropertyID
	}
	if req.IsActive != nil {
		source.IsActive = *req.IsActive
	}

	if err := sc.sourceRepo.Update(ctx, source); err != nil {
		return nil, log.Err("failed to update calendar source", err, "sourceID", id)
	}

	return source, nil
}
