package handlers

import (
	"errors"
	"time"

	"turnkeep/internal/app"
	scheduleController "turnkeep/internal/controllers/schedules"
	"turnkeep/internal/handlers/middleware"
	"turnkeep/internal/models"
	"turnkeep/internal/repositories"
	"turnkeep/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ScheduleHandler struct {
	Handler
	controller scheduleController.ScheduleControllerInterface
	app        app.App
}

func NewScheduleHandler(app app.App, router fiber.Router) *ScheduleHandler {
	log := logger.New("handlers").File("schedule_handler")
	return &ScheduleHandler{
		controller: app.Controllers.Schedule,
		app:        app,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *ScheduleHandler) Register() {
	schedules := h.router.Group(
		"/schedules",
		h.middleware.RequireAuth(h.app.Services.Session),
	)

	schedules.Get("/", h.list)
	schedules.Get("/:id", h.get)
	schedules.Get("/:id/history", h.history)
	schedules.Post("/:id/status", h.changeStatus)
	schedules.Patch("/:id/notes", h.updateNotes)
	schedules.Patch("/:id/checklist/:itemId", h.setChecklistItem)

	managed := schedules.Group("/", h.middleware.RequireManager())
	managed.Post("/", h.create)
	managed.Patch("/:id/times", h.updateTimes)
	managed.Patch("/:id/assignment", h.updateAssignment)

	schedules.Delete("/:id", h.middleware.RequireAdmin(), h.deactivate)
}

func (h *ScheduleHandler) list(c *fiber.Ctx) error {
	log := h.log.Function("list")

	filter := repositories.ScheduleFilter{
		Limit:  c.QueryInt("limit", 100),
		Offset: c.QueryInt("offset", 0),
	}

	if status := c.Query("status"); status != "" {
		filter.Status = models.Status(status)
		if !filter.Status.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown status filter",
			})
		}
	}
	if propertyID, err := uuid.Parse(c.Query("propertyId")); err == nil {
		filter.PropertyID = &propertyID
	}
	if cleanerID, err := uuid.Parse(c.Query("cleanerId")); err == nil {
		filter.CleanerID = &cleanerID
	}
	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		filter.From = &from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		filter.To = &to
	}

	schedules, err := h.controller.List(c.UserContext(), filter)
	if err != nil {
		log.Er("failed to list schedules", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list schedules",
		})
	}

	return c.JSON(fiber.Map{"schedules": schedules})
}

func (h *ScheduleHandler) get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid schedule id",
		})
	}

	schedule, err := h.controller.Get(c.UserContext(), id)
	if err != nil {
		return h.scheduleError(c, err)
	}

	return c.JSON(fiber.Map{"schedule": schedule})
}

func (h *ScheduleHandler) history(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid schedule id",
		})
	}

	events, err := h.controller.History(c.UserContext(), id)
	if err != nil {
		return h.scheduleError(c, err)
	}

	return c.JSON(fiber.Map{"history": events})
}

func (h *ScheduleHandler) create(c *fiber.Ctx) error {
	log := h.log.Function("create")

	var req scheduleController.CreateScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		log.Info("invalid create payload", "error", err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	schedule, err := h.controller.Create(
		c.UserContext(),
		middleware.GetUser(c),
		req,
		middleware.GetSessionID(c),
	)
	if err != nil {
		return h.scheduleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"schedule": schedule})
}

func (h *ScheduleHandler) changeStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid schedule id",
		})
	}

	var req struct {
		Status models.Status `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	schedule, err := h.controller.ChangeStatus(
		c.UserContext(),
		middleware.GetUser(c),
		id,
		req.Status,
		middleware.GetSessionID(c),
	)
	if err != nil {
		return h.scheduleError(c, err)
	}

	return c.JSON(fiber.Map{"schedule": schedule})
}

func (h *ScheduleHandler) updateNotes(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid schedule id",
		})
	}

	var req scheduleController.UpdateNotesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	schedule, err := h.controller.UpdateNotes(
		c.UserContext(),
		middleware.GetUser(c),
		id,
		req,
		middleware.GetSessionID(c),
	)
	if err != nil {
		return h.scheduleError(c, err)
	}

	return c.JSON(fiber.Map{"schedule": schedule})
}

func (h *ScheduleHandler) updateTimes(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid schedule id",
		})
	}

	var req scheduleController.UpdateTimesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	schedule, err := h.controller.UpdateTimes(
		c.UserContext(),
		middleware.GetUser(c),
		id,
		req,
		middleware.GetSessionID(c),
	)
	if err != nil {
		return h.scheduleError(c, err)
	}

	return c.JSON(fiber.Map{"schedule": schedule})
}

func (h *ScheduleHandler) updateAssignment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid schedule id",
		})
	}

	var req struct {
		CleanerID *uuid.UUID `json:"cleanerId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	schedule, err := h.controller.UpdateAssignment(
		c.UserContext(),
		middleware.GetUser(c),
		id,
		req.CleanerID,
		middleware.GetSessionID(c),
	)
	if err != nil {
		return h.scheduleError(c, err)
	}

	return c.JSON(fiber.Map{"schedule": schedule})
}

func (h *ScheduleHandler) setChecklistItem(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid schedule id",
		})
	}

	itemID, err := uuid.Parse(c.Params("itemId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid checklist item id",
		})
	}

	var req struct {
		Done bool `json:"done"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	schedule, err := h.controller.SetChecklistItem(
		c.UserContext(),
		middleware.GetUser(c),
		id,
		itemID,
		req.Done,
		middleware.GetSessionID(c),
	)
	if err != nil {
		return h.scheduleError(c, err)
	}

	return c.JSON(fiber.Map{"schedule": schedule})
}

func (h *ScheduleHandler) deactivate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid schedule id",
		})
	}

	if err := h.controller.Deactivate(
		c.UserContext(),
		middleware.GetUser(c),
		id,
		middleware.GetSessionID(c),
	); err != nil {
		return h.scheduleError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Schedule deactivated"})
}

// scheduleError maps controller errors to HTTP responses. The sync-in-flight
// refusal is 409: the client should wait for sync_complete and retry.
func (h *ScheduleHandler) scheduleError(c *fiber.Ctx, err error) error {
	var forbidden *scheduleController.ForbiddenError

	switch {
	case errors.Is(err, scheduleController.ErrSyncInFlight):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.As(err, &forbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": forbidden.Reason,
		})
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Schedule not found",
		})
	case errors.Is(err, scheduleController.ErrInvalidWindow),
		errors.Is(err, scheduleController.ErrChecklistNotLoaded),
		errors.Is(err, scheduleController.ErrChecklistItemNotFound):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		h.log.Function("scheduleError").Er("schedule request failed", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
}
