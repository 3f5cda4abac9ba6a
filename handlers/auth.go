package handlers

import (
	"netwin-backend/services"

	"github.com/gofiber/fiber/v2"
)

type otpRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type otpVerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// SetupAuthRoutes mounts the public OTP endpoints.
func SetupAuthRoutes(api fiber.Router, otp *services.OTPService) {
	auth := api.Group("/auth")

	auth.Post("/send-otp", func(c *fiber.Ctx) error {
		var req otpRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		if err := otp.SendOTP(c.UserContext(), req.Email); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "message": "OTP sent"})
	})

	auth.Post("/verify-otp", func(c *fiber.Ctx) error {
		var req otpVerifyRequest
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		if err := otp.VerifyOTP(c.UserContext(), req.Email, req.OTP); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "verified": true})
	})
}
