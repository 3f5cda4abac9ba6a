package handlers

import (
	"fmt"
	"strings"

	"netwin-backend/apperrors"
	"netwin-backend/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// respondError renders err as {"error", "code"}. Causes are logged, never sent.
func respondError(c *fiber.Ctx, err error) error {
	appErr := apperrors.From(err)
	status := appErr.HTTPStatus()
	if status >= fiber.StatusInternalServerError {
		utils.Log.Errorw("❌ request failed", "method", c.Method(), "path", c.Path(), "code", appErr.Code, "error", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}

// parseBody decodes the JSON body into dst and runs struct validation.
func parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.InvalidInput("Invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return apperrors.InvalidInput(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "Invalid request body"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
		case "min", "max", "len":
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
