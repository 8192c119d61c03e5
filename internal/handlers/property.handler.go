package handlers

import (
	"errors"

	"turnkeep/internal/app"
	propertyController "turnkeep/internal/controllers/properties"
	"turnkeep/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PropertyHandler struct {
	Handler
	controller propertyController.PropertyControllerInterface
	app        app.App
}

func NewPropertyHandler(app app.App, router fiber.Router) *PropertyHandler {
	log := logger.New("handlers").File("property_handler")
	return &PropertyHandler{
		controller: app.Controllers.Property,
		app:        app,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *PropertyHandler) Register() {
	properties := h.router.Group(
		"/properties",
		h.middleware.RequireAuth(h.app.Services.Session),
	)

	properties.Get("/", h.getAll)
	properties.Get("/:id", h.get)

	managed := properties.Group("/", h.middleware.RequireManager())
	managed.Post("/", h.create)
	managed.Patch("/:id", h.update)
}

func (h *PropertyHandler) getAll(c *fiber.Ctx) error {
	log := h.log.Function("getAll")

	properties, err := h.controller.GetAll(c.UserContext())
	if err != nil {
		log.Er("failed to list properties", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list properties",
		})
	}

	return c.JSON(fiber.Map{"properties": properties})
}

func (h *PropertyHandler) get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid property id",
		})
	}

	property, err := h.controller.Get(c.UserContext(), id)
	if err != nil {
		return h.propertyError(c, err)
	}

	return c.JSON(fiber.Map{"property": property})
}

func (h *PropertyHandler) create(c *fiber.Ctx) error {
	var req propertyController.PropertyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	property, err := h.controller.Create(c.UserContext(), req)
	if err != nil {
		return h.propertyError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"property": property})
}

func (h *PropertyHandler) update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid property id",
		})
	}

	var req propertyController.PropertyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	property, err := h.controller.Update(c.UserContext(), id, req)
	if err != nil {
		return h.propertyError(c, err)
	}

	return c.JSON(fiber.Map{"property": property})
}

func (h *PropertyHandler) propertyError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Property not found",
		})
	case errors.Is(err, propertyController.ErrMissingName):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		h.log.Function("propertyError").Er("property request failed", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
}
