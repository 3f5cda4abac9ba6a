package middleware

import (
	"crypto/subtle"
	"strings"

	"netwin-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// ServiceTokenMiddleware guards internal endpoints called by cron runners
// and other services. An empty expected token disables the routes.
func ServiceTokenMiddleware(expectedToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if expectedToken == "" {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			utils.Log.Warnw("🚫 [SERVICE_AUTH] missing Authorization header", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "service token missing",
				"code":  "UNAUTHORIZED",
			})
		}

		// Accept "Bearer <token>" or the raw value.
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			utils.Log.Warnw("❌ [SERVICE_AUTH] invalid token", "path", c.Path(), "ip", c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid service token",
				"code":  "UNAUTHORIZED",
			})
		}
		return c.Next()
	}
}
