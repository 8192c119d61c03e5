package handlers

import (
	"errors"

	"turnkeep/internal/app"
	syncController "turnkeep/internal/controllers/sync"
	"turnkeep/internal/handlers/middleware"
	"turnkeep/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SyncHandler struct {
	Handler
	controller syncController.SyncControllerInterface
	app        app.App
}

func NewSyncHandler(app app.App, router fiber.Router) *SyncHandler {
	log := logger.New("handlers").File("sync_handler")
	return &SyncHandler{
		controller: app.Controllers.Sync,
		app:        app,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *SyncHandler) Register() {
	sync := h.router.Group(
		"/sync",
		h.middleware.RequireAuth(h.app.Services.Session),
		h.middleware.RequireManager(),
	)

	sync.Post("/", h.startSync)
	sync.Get("/status", h.status)
	sync.Get("/runs", h.recentRuns)
	sync.Get("/sources", h.sources)
	sync.Post("/sources", h.createSource)
	sync.Patch("/sources/:id", h.updateSource)
}

func (h *SyncHandler) startSync(c *fiber.Ctx) error {
	log := h.log.Function("startSync")

	var req struct {
		SourceID *uuid.UUID `json:"sourceId"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	result, err := h.controller.StartSync(
		c.UserContext(),
		middleware.GetUser(c),
		req.SourceID,
	)
	if err != nil {
		log.Er("sync request failed", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Sync failed",
		})
	}

	// A dropped duplicate request is reported as accepted-but-ignored, not
	// as an error.
	if result == nil {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message": "A sync is already in progress",
		})
	}

	return c.JSON(fiber.Map{"synced": result.Synced})
}

func (h *SyncHandler) status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"inFlight": h.controller.InFlight()})
}

func (h *SyncHandler) recentRuns(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"runs": h.controller.RecentRuns(c.UserContext())})
}

func (h *SyncHandler) sources(c *fiber.Ctx) error {
	log := h.log.Function("sources")

	sources, err := h.controller.Sources(c.UserContext())
	if err != nil {
		log.Er("failed to list calendar sources", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list calendar sources",
		})
	}

	return c.JSON(fiber.Map{"sources": sources})
}

func (h *SyncHandler) createSource(c *fiber.Ctx) error {
	var req syncController.SourceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	source, err := h.controller.CreateSource(c.UserContext(), req)
	if err != nil {
		return h.sourceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"source": source})
}

func (h *SyncHandler) updateSource(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid source id",
		})
	}

	var req syncController.SourceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	source, err := h.controller.UpdateSource(c.UserContext(), id, req)
	if err != nil {
		return h.sourceError(c, err)
	}

	return c.JSON(fiber.Map{"source": source})
}

func (h *SyncHandler) sourceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Not found",
		})
	case errors.Is(err, syncController.ErrMissingSourceFields):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		h.log.Function("sourceError").Er("calendar source request failed", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
}
