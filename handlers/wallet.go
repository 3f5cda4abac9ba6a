package handlers

import (
	"netwin-backend/middleware"
	"netwin-backend/models"
	"netwin-backend/services"

	"github.com/gofiber/fiber/v2"
)

// SetupWalletRoutes mounts the manual deposit/withdrawal request flow.
func SetupWalletRoutes(r fiber.Router, wallet *services.WalletService) {
	r.Get("/balance", func(c *fiber.Ctx) error {
		bal, err := wallet.Balance(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(bal)
	})

	r.Post("/deposits", func(c *fiber.Ctx) error {
		var in services.DepositInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, err)
		}
		res, err := wallet.RequestDeposit(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "deposit": res.Deposit, "transaction": res.Transaction})
	})

	r.Get("/deposits", func(c *fiber.Ctx) error {
		list, err := wallet.ListDeposits(c.UserContext(), middleware.UserID(c), models.TxStatus(c.Query("status")))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"deposits": list})
	})

	r.Post("/withdrawals", func(c *fiber.Ctx) error {
		var in services.WithdrawalInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, err)
		}
		res, err := wallet.RequestWithdrawal(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "withdrawal": res.Withdrawal, "transaction": res.Transaction})
	})

	r.Get("/withdrawals", func(c *fiber.Ctx) error {
		list, err := wallet.ListWithdrawals(c.UserContext(), middleware.UserID(c), models.TxStatus(c.Query("status")))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"withdrawals": list})
	})
}
