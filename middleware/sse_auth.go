package middleware

import (
	"strings"

	"netwin-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware authenticates EventSource requests, which cannot set
// headers, from the `token` query parameter.
//
// Usage:
//
//	api.Get("/notifications/stream", middleware.SSEAuthMiddleware(issuer), h.Stream)
func SSEAuthMiddleware(issuer *TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(c.Query("token"))
		if accessToken == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token in query",
				"code":  "INVALID_INPUT",
			})
		}

		claims, err := issuer.Parse(accessToken)
		if err != nil {
			utils.Log.Debugw("[SSEAuth] ❌ validation failed", "ip", c.IP(), "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
				"code":  "UNAUTHORIZED",
			})
		}

		attachClaims(c, claims)
		utils.Log.Debugw("[SSEAuth] ✅ authenticated", "user_id", claims.Subject)
		return c.Next()
	}
}
