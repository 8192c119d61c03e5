package services

import (
	"turnkeep/config"
	"turnkeep/internal/database"
	"turnkeep/internal/repositories"
)

type Service struct {
	Session   *SessionService
	Lifecycle *LifecycleService
	Sync      *SyncService
	Scheduler *SchedulerService
	Calendar  CalendarClient
	Suppress  *SuppressRegistry
}

func New(db database.DB, config config.Config, repos repositories.Repository) Service {
	sessionService := NewSessionService(db, config)
	lifecycleService := NewLifecycleService(repos.Schedule, repos.Checklist, repos.Property)
	calendarService := NewCalendarService(config)
	syncService := NewSyncService(config, calendarService)
	schedulerService := NewSchedulerService()

	return Service{
		Session:   sessionService,
		Lifecycle: lifecycleService,
		Sync:      syncService,
		Scheduler: schedulerService,
		Calendar:  calendarService,
		Suppress:  NewSuppressRegistry(),
	}
}
