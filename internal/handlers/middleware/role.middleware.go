package middleware

import (
	"turnkeep/internal/models"

	"github.com/gofiber/fiber/v2"
)

func (m *Middleware) RequireAdmin() fiber.Handler {
	log := m.log.Function("RequireAdmin")

	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			log.Info("user not found in context")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		if user.Role != models.RoleAdmin {
			log.Info("user is not admin", "userID", user.ID, "role", user.Role)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}

		return c.Next()
	}
}

// RequireManager admits admins and managers.
func (m *Middleware) RequireManager() fiber.Handler {
	log := m.log.Function("RequireManager")

	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			log.Info("user not found in context")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		if user.Role != models.RoleAdmin && user.Role != models.RoleManager {
			log.Info("user is not a manager", "userID", user.ID, "role", user.Role)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Manager access required",
			})
		}

		return c.Next()
	}
}
