// common.go
//
// Shared request parsing and validation for all handlers.

package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/taskpilot/taskpilot/internal/apperrors"
)

var validate = validator.New()

// parseBody decodes the JSON body into out and runs schema validation.
// Enum fields (ticket type, priority, status) are enforced here, before the
// entity layer sees the request.
func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewBadRequest("Invalid request body: %v", err)
	}
	if err := validate.Struct(out); err != nil {
		return apperrors.NewBadRequest("Invalid request body: %v", err)
	}
	return nil
}
