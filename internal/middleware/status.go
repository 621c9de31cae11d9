package middleware

import (
	"errors"

	"stockflow/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

// responseStatus predicts the status the error handler will write for err.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return apperr.CodeOf(err).HTTPStatus()
}
