package handlers

import (
	"netwin-backend/apperrors"
	"netwin-backend/middleware"
	"netwin-backend/services"

	"github.com/gofiber/fiber/v2"
)

// SetupInternalRoutes mounts service-to-service endpoints guarded by the
// service token.
func SetupInternalRoutes(app *fiber.App, serviceToken string, sweeper *services.StatusSweeper) {
	internal := app.Group("/internal", middleware.ServiceTokenMiddleware(serviceToken))

	internal.Post("/status-sweep", func(c *fiber.Ctx) error {
		if sweeper == nil {
			return respondError(c, apperrors.New(apperrors.CodeInternal, "status sweeper is not configured"))
		}
		changed, err := sweeper.Sweep(c.UserContext())
		if err != nil {
			return respondError(c, apperrors.Database(err, "status sweep failed"))
		}
		return c.JSON(fiber.Map{"success": true, "updated": changed})
	})
}
