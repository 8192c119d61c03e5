package handlers

import (
	"errors"

	"turnkeep/internal/app"
	checklistController "turnkeep/internal/controllers/checklists"
	"turnkeep/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChecklistHandler struct {
	Handler
	controller checklistController.ChecklistControllerInterface
	app        app.App
}

func NewChecklistHandler(app app.App, router fiber.Router) *ChecklistHandler {
	log := logger.New("handlers").File("checklist_handler")
	return &ChecklistHandler{
		controller: app.Controllers.Checklist,
		app:        app,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *ChecklistHandler) Register() {
	checklists := h.router.Group(
		"/checklists",
		h.middleware.RequireAuth(h.app.Services.Session),
	)

	checklists.Get("/", h.getAll)
	checklists.Get("/:id", h.get)

	managed := checklists.Group("/", h.middleware.RequireManager())
	managed.Post("/", h.create)
	managed.Put("/:id", h.update)
	managed.Delete("/:id", h.deactivate)
}

func (h *ChecklistHandler) getAll(c *fiber.Ctx) error {
	log := h.log.Function("getAll")

	templates, err := h.controller.GetAll(c.UserContext())
	if err != nil {
		log.Er("failed to list checklist templates", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list checklist templates",
		})
	}

	return c.JSON(fiber.Map{"checklists": templates})
}

func (h *ChecklistHandler) get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid checklist id",
		})
	}

	template, err := h.controller.Get(c.UserContext(), id)
	if err != nil {
		return h.checklistError(c, err)
	}

	return c.JSON(fiber.Map{"checklist": template})
}

func (h *ChecklistHandler) create(c *fiber.Ctx) error {
	var req checklistController.TemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	template, err := h.controller.Create(c.UserContext(), req)
	if err != nil {
		return h.checklistError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"checklist": template})
}

func (h *ChecklistHandler) update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid checklist id",
		})
	}

	var req checklistController.TemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	template, err := h.controller.Update(c.UserContext(), id, req)
	if err != nil {
		return h.checklistError(c, err)
	}

	return c.JSON(fiber.Map{"checklist": template})
}

func (h *ChecklistHandler) deactivate(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid checklist id",
		})
	}

	if err := h.controller.Deactivate(c.UserContext(), id); err != nil {
		return h.checklistError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Checklist deactivated"})
}

func (h *ChecklistHandler) checklistError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Checklist not found",
		})
	case errors.Is(err, checklistController.ErrNoItems):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		h.log.Function("checklistError").Er("checklist request failed", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
}
