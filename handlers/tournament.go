package handlers

import (
	"netwin-backend/apperrors"
	"netwin-backend/middleware"
	"netwin-backend/models"
	"netwin-backend/services"

	"github.com/gofiber/fiber/v2"
)

// SetupTournamentRoutes mounts browsing, joining and result submission under
// /api/tournaments.
func SetupTournamentRoutes(r fiber.Router, tournaments *services.TournamentService) {
	r.Get("/", func(c *fiber.Ctx) error {
		status := models.TournamentStatus(c.Query("status"))
		if status != "" && !status.Valid() {
			return respondError(c, services.ErrInvalidStatus)
		}
		list, err := tournaments.ListTournaments(c.UserContext(), services.TournamentFilter{
			Status: status,
			Game:   c.Query("game"),
			Mode:   c.Query("mode"),
			Limit:  c.QueryInt("limit", 100),
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"tournaments": list})
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		detail, err := tournaments.GetTournament(c.UserContext(), c.Params("id"), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(detail)
	})

	r.Post("/:id/join", func(c *fiber.Ctx) error {
		var req services.JoinRequest
		if len(c.Body()) > 0 {
			if err := parseBody(c, &req); err != nil {
				return joinFailure(c, err)
			}
		}
		result, err := tournaments.JoinTournament(c.UserContext(), middleware.UserID(c), c.Params("id"), req)
		if err != nil {
			return joinFailure(c, err)
		}
		return c.JSON(fiber.Map{
			"success":        true,
			"registration":   result.Registration,
			"transaction":    result.Transaction,
			"match":          result.Match,
			"wallet_balance": result.WalletBalance,
		})
	})

	r.Post("/:id/result", func(c *fiber.Ctx) error {
		var in services.ResultInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, err)
		}
		reg, err := tournaments.SubmitResult(c.UserContext(), middleware.UserID(c), c.Params("id"), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "registration": reg})
	})
}

// joinFailure keeps the join endpoint's {"success": false, "error"} shape.
func joinFailure(c *fiber.Ctx, err error) error {
	appErr := apperrors.From(err)
	if appErr.HTTPStatus() >= fiber.StatusInternalServerError {
		// logged by the service
		return c.Status(appErr.HTTPStatus()).JSON(fiber.Map{"success": false, "error": "Failed to join tournament", "code": appErr.Code})
	}
	return c.Status(appErr.HTTPStatus()).JSON(fiber.Map{"success": false, "error": appErr.Message, "code": appErr.Code})
}
