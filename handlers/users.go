package handlers

import (
	"netwin-backend/apperrors"
	"netwin-backend/middleware"
	"netwin-backend/models"
	"netwin-backend/services"

	"github.com/gofiber/fiber/v2"
)

// SetupUserRoutes mounts profile, stats, matches and transaction history
// under /api/users.
func SetupUserRoutes(users fiber.Router, svc Services) {
	users.Post("/", func(c *fiber.Ctx) error {
		var in services.CreateProfileInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, err)
		}
		user, err := svc.Users.CreateProfile(c.UserContext(), middleware.UserID(c), middleware.UserEmail(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(user)
	})

	users.Get("/me", func(c *fiber.Ctx) error {
		user, err := svc.Users.Get(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(user)
	})

	users.Patch("/me", func(c *fiber.Ctx) error {
		var in services.UpdateProfileInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, err)
		}
		user, err := svc.Users.UpdateProfile(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(user)
	})

	users.Get("/me/stats", func(c *fiber.Ctx) error {
		stats, err := svc.Stats.Get(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(stats)
	})

	users.Get("/me/matches", func(c *fiber.Ctx) error {
		matches, err := svc.Tournaments.ListUserMatches(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"matches": matches})
	})

	// Own history, or anyone's for admins.
	users.Get("/:id/transactions", func(c *fiber.Ctx) error {
		target := c.Params("id")
		if target == "me" {
			target = middleware.UserID(c)
		}
		if target != middleware.UserID(c) && !middleware.HasRole(c, models.RoleAdmin) {
			return respondError(c, apperrors.Forbidden("You can only view your own transactions"))
		}
		txs, err := svc.Wallet.ListTransactions(c.UserContext(), target, services.TransactionFilter{
			Type:   models.TxType(c.Query("type")),
			Status: models.TxStatus(c.Query("status")),
			Limit:  c.QueryInt("limit", 50),
			Offset: c.QueryInt("offset", 0),
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"transactions": txs})
	})
}
