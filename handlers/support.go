package handlers

import (
	"netwin-backend/middleware"
	"netwin-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupSupportRoutes(r fiber.Router, support *services.SupportService) {
	r.Post("/tickets", func(c *fiber.Ctx) error {
		var in services.TicketInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, err)
		}
		t, err := support.Create(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	})

	r.Get("/tickets", func(c *fiber.Ctx) error {
		list, err := support.List(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"tickets": list})
	})

	r.Get("/tickets/:id", func(c *fiber.Ctx) error {
		t, err := support.Get(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(t)
	})
}
