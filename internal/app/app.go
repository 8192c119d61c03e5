package app

import (
	"context"

	"turnkeep/config"
	"turnkeep/internal/controllers"
	"turnkeep/internal/database"
	"turnkeep/internal/events"
	"turnkeep/internal/handlers/middleware"
	"turnkeep/internal/jobs"
	"turnkeep/internal/metrics"
	"turnkeep/internal/repositories"
	"turnkeep/internal/services"
	"turnkeep/internal/websockets"
	"turnkeep/pkg/logger"
)

type App struct {
	Database   database.DB
	Middleware middleware.Middleware
	Websocket  *websockets.Manager
	EventBus   *events.EventBus
	Config     config.Config

	Services    services.Service
	Repos       repositories.Repository
	Controllers controllers.Controllers
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.InitConfig()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	metrics.Register()

	eventBus := events.New(db.Cache.Events)

	repos := repositories.New(db)
	svcs := services.New(db, config, repos)

	websocket, err := websockets.New(eventBus, svcs.Session, svcs.Suppress)
	if err != nil {
		return &App{}, log.Err("failed to create websocket manager", err)
	}

	// The orchestrator notifies viewers through the websocket manager; wired
	// here because the manager itself depends on services.
	svcs.Sync.SetNotifier(websocket)

	middleware := middleware.New(db, eventBus, config, repos)
	ctrls := controllers.New(svcs, repos, eventBus, config, db)

	if config.SchedulerEnabled {
		calendarSyncJob := jobs.NewCalendarSyncJob(ctrls.Sync, services.Nightly)
		if err := svcs.Scheduler.AddJob(calendarSyncJob); err != nil {
			return &App{}, log.Err("failed to register calendar sync job", err)
		}
		log.Info("Registered nightly calendar sync job with scheduler")

		if err := svcs.Scheduler.Start(context.Background()); err != nil {
			return &App{}, log.Err("failed to start scheduler", err)
		}
	}

	app := &App{
		Database:    db,
		Config:      config,
		Middleware:  middleware,
		Websocket:   websocket,
		EventBus:    eventBus,
		Services:    svcs,
		Repos:       repos,
		Controllers: ctrls,
	}

	if err := app.validate(); err != nil {
		return &App{}, log.Err("failed to validate app", err)
	}

	return app, nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")

	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}

	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := []any{
		a.Websocket,
		a.EventBus,
		a.Services.Session,
		a.Services.Lifecycle,
		a.Services.Sync,
		a.Services.Scheduler,
		a.Services.Calendar,
		a.Services.Suppress,
		a.Repos.User,
		a.Repos.Property,
		a.Repos.Checklist,
		a.Repos.Schedule,
		a.Repos.CalendarSource,
		a.Controllers.Auth,
		a.Controllers.Schedule,
		a.Controllers.Checklist,
		a.Controllers.Sync,
	}

	for _, check := range nilChecks {
		if check == nil {
			return log.ErrMsg("nil check failed")
		}
	}

	return nil
}

func (a *App) Close() (err error) {
	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = closeErr
		}
	}

	if a.Services.Scheduler != nil {
		if closeErr := a.Services.Scheduler.Stop(context.Background()); closeErr != nil {
			err = closeErr
		}
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}
