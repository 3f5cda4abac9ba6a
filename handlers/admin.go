package handlers

import (
	"netwin-backend/middleware"
	"netwin-backend/models"
	"netwin-backend/services"

	"github.com/gofiber/fiber/v2"
)

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type kycReviewRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason" validate:"max=500"`
}

// SetupAdminRoutes mounts the admin surface. The router is already guarded by
// the admin role.
func SetupAdminRoutes(admin fiber.Router, svc Services) {
	// Tournaments
	admin.Post("/tournaments", func(c *fiber.Ctx) error {
		var in services.CreateTournamentInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, err)
		}
		t, err := svc.Tournaments.CreateTournament(c.UserContext(), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	})

	admin.Patch("/tournaments/:id", func(c *fiber.Ctx) error {
		var in services.UpdateTournamentInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, err)
		}
		t, err := svc.Tournaments.UpdateTournament(c.UserContext(), c.Params("id"), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(t)
	})

	admin.Patch("/tournaments/:id/status", func(c *fiber.Ctx) error {
		var req statusRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		t, err := svc.Tournaments.SetStatus(c.UserContext(), c.Params("id"), req.Status)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(t)
	})

	admin.Post("/tournaments/:id/cancel", func(c *fiber.Ctx) error {
		var req reasonRequest
		if len(c.Body()) > 0 {
			if err := parseBody(c, &req); err != nil {
				return respondError(c, err)
			}
		}
		refunds, err := svc.Tournaments.CancelTournament(c.UserContext(), middleware.UserID(c), c.Params("id"), req.Reason)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "refunds": refunds})
	})

	admin.Get("/tournaments/:id/registrations", func(c *fiber.Ctx) error {
		regs, err := svc.Tournaments.ListRegistrations(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"registrations": regs})
	})

	// Results
	admin.Post("/registrations/:id/verify", func(c *fiber.Ctx) error {
		var in services.VerifyResultInput
		if len(c.Body()) > 0 {
			if err := parseBody(c, &in); err != nil {
				return respondError(c, err)
			}
		}
		reg, err := svc.Tournaments.VerifyResult(c.UserContext(), middleware.UserID(c), c.Params("id"), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(reg)
	})

	admin.Post("/registrations/:id/reject", func(c *fiber.Ctx) error {
		var req reasonRequest
		if len(c.Body()) > 0 {
			if err := parseBody(c, &req); err != nil {
				return respondError(c, err)
			}
		}
		reg, err := svc.Tournaments.RejectResult(c.UserContext(), middleware.UserID(c), c.Params("id"), req.Reason)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(reg)
	})

	// Wallet review
	admin.Get("/deposits", func(c *fiber.Ctx) error {
		list, err := svc.Wallet.ListDeposits(c.UserContext(), c.Query("user_id"), models.TxStatus(c.Query("status", string(models.TxPending))))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"deposits": list})
	})

	admin.Post("/deposits/:id/review", func(c *fiber.Ctx) error {
		var r services.Review
		if err := parseBody(c, &r); err != nil {
			return respondError(c, err)
		}
		dep, err := svc.Wallet.ReviewDeposit(c.UserContext(), middleware.UserID(c), c.Params("id"), r)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(dep)
	})

	admin.Get("/withdrawals", func(c *fiber.Ctx) error {
		list, err := svc.Wallet.ListWithdrawals(c.UserContext(), c.Query("user_id"), models.TxStatus(c.Query("status", string(models.TxPending))))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"withdrawals": list})
	})

	admin.Post("/withdrawals/:id/review", func(c *fiber.Ctx) error {
		var r services.Review
		if err := parseBody(c, &r); err != nil {
			return respondError(c, err)
		}
		wd, err := svc.Wallet.ReviewWithdrawal(c.UserContext(), middleware.UserID(c), c.Params("id"), r)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(wd)
	})

	// KYC
	admin.Get("/kyc", func(c *fiber.Ctx) error {
		docs, err := svc.KYC.ListPending(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"documents": docs})
	})

	admin.Post("/kyc/:id/review", func(c *fiber.Ctx) error {
		var req kycReviewRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		doc, err := svc.KYC.Review(c.UserContext(), middleware.UserID(c), c.Params("id"), req.Approve, req.Reason)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(doc)
	})

	// Support
	admin.Get("/support/tickets", func(c *fiber.Ctx) error {
		list, err := svc.Support.ListAll(c.UserContext(), models.TicketStatus(c.Query("status")))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"tickets": list})
	})

	admin.Post("/support/tickets/:id/respond", func(c *fiber.Ctx) error {
		var in services.TicketResponse
		if err := parseBody(c, &in); err != nil {
			return respondError(c, err)
		}
		t, err := svc.Support.Respond(c.UserContext(), c.Params("id"), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(t)
	})

	// Users
	admin.Get("/users/search", func(c *fiber.Ctx) error {
		users, err := svc.Users.SearchUsers(c.UserContext(), c.Query("q"), c.QueryInt("limit", 50))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"users": users})
	})
}
