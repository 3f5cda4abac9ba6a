package handlers

import (
	"netwin-backend/middleware"
	"netwin-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupKYCRoutes(r fiber.Router, kyc *services.KYCService) {
	r.Post("/", func(c *fiber.Ctx) error {
		var in services.KYCInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, err)
		}
		doc, err := kyc.Submit(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "document": doc})
	})

	r.Get("/", func(c *fiber.Ctx) error {
		view, err := kyc.Get(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(view)
	})
}
