// response.go
//
// Response envelope helpers. Every API response carries message, code, and
// result, plus an entity-specific payload field on success.

package utils

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taskpilot/taskpilot/internal/apperrors"
)

// Envelope is the base response schema.
type Envelope struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Result  bool   `json:"result"`
}

// Success sends a 200 envelope with the payload fields merged in.
func Success(c *fiber.Ctx, message string, payload fiber.Map) error {
	body := fiber.Map{
		"message": message,
		"code":    fiber.StatusOK,
		"result":  true,
	}
	for k, v := range payload {
		body[k] = v
	}
	return c.Status(fiber.StatusOK).JSON(body)
}

// Error sends a failure envelope derived from the error's application type.
// Errors without a type are reported as internal without leaking detail.
func Error(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if appErr := apperrors.Get(err); appErr != nil {
		code = appErr.Code
		message = appErr.Message
	}
	return c.Status(code).JSON(fiber.Map{
		"message": message,
		"code":    code,
		"result":  false,
	})
}
