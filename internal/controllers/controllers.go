package controllers

import (
	"turnkeep/config"
	"turnkeep/internal/database"
	"turnkeep/internal/events"
	"turnkeep/internal/repositories"
	"turnkeep/internal/services"

	authController "turnkeep/internal/controllers/auth"
	checklistController "turnkeep/internal/controllers/checklists"
	propertyController "turnkeep/internal/controllers/properties"
	scheduleController "turnkeep/internal/controllers/schedules"
	syncController "turnkeep/internal/controllers/sync"
)

type Controllers struct {
	Auth      authController.AuthControllerInterface
	Schedule  scheduleController.ScheduleControllerInterface
	Checklist checklistController.ChecklistControllerInterface
	Property  propertyController.PropertyControllerInterface
	Sync      syncController.SyncControllerInterface
}

func New(
	services services.Service,
	repos repositories.Repository,
	eventBus *events.EventBus,
	config config.Config,
	db database.DB,
) Controllers {
	return Controllers{
		Auth:      authController.New(services, repos, db),
		Schedule:  scheduleController.New(repos, services, eventBus),
		Checklist: checklistController.New(repos),
		Property:  propertyController.New(repos),
		Sync:      syncController.New(repos, services, config),
	}
}
