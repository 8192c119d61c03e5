package handlers

import (
	"errors"
	"strings"

	"turnkeep/internal/app"
	authController "turnkeep/internal/controllers/auth"
	"turnkeep/internal/handlers/middleware"
	"turnkeep/internal/models"
	"turnkeep/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	Handler
	controller authController.AuthControllerInterface
	app        app.App
}

func NewAuthHandler(app app.App, router fiber.Router) *AuthHandler {
	log := logger.New("handlers").File("auth_handler")
	return &AuthHandler{
		controller: app.Controllers.Auth,
		app:        app,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *AuthHandler) Register() {
	auth := h.router.Group("/auth")

	auth.Post("/login", h.login)

	protected := auth.Group("/", h.middleware.RequireAuth(h.app.Services.Session))
	protected.Get("/me", h.getCurrentUser)
	protected.Post("/logout", h.logout)

	admin := auth.Group(
		"/users",
		h.middleware.RequireAuth(h.app.Services.Session),
		h.middleware.RequireAdmin(),
	)
	admin.Post("/", h.createUser)

	managed := auth.Group(
		"/cleaners",
		h.middleware.RequireAuth(h.app.Services.Session),
		h.middleware.RequireManager(),
	)
	managed.Get("/", h.listCleaners)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	log := h.log.Function("login")

	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Info("invalid login payload", "error", err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	token, profile, err := h.controller.Login(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, authController.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid email or password",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Login failed",
		})
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  profile,
	})
}

func (h *AuthHandler) getCurrentUser(c *fiber.Ctx) error {
	user := middleware.GetUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	return c.JSON(fiber.Map{"user": user.ToProfile()})
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	log := h.log.Function("logout")

	authHeader := c.Get("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

	if err := h.controller.Logout(c.UserContext(), token); err != nil {
		log.Er("logout failed", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Logout failed",
		})
	}

	return c.JSON(fiber.Map{"message": "Logged out"})
}

func (h *AuthHandler) createUser(c *fiber.Ctx) error {
	log := h.log.Function("createUser")

	var req authController.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		log.Info("invalid create user payload", "error", err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	profile, err := h.controller.CreateUser(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, authController.ErrMissingCredentials) ||
			errors.Is(err, authController.ErrInvalidRole) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create user",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": profile})
}

func (h *AuthHandler) listCleaners(c *fiber.Ctx) error {
	log := h.log.Function("listCleaners")

	cleaners, err := h.controller.ListCleaners(c.UserContext())
	if err != nil {
		log.Er("failed to list cleaners", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list cleaners",
		})
	}

	return c.JSON(fiber.Map{"cleaners": cleaners})
}
