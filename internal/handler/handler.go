package handler

import (
	"errors"

	"stockflow/internal/apperr"
	"stockflow/internal/auth"
	"stockflow/internal/model"
	"stockflow/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ErrorHandler writes typed errors as {"error", "code"} with the matching
// status. Causes of internal errors are logged, never returned.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	code := apperr.CodeOf(err)
	if code == apperr.Internal {
		logger.Error(c.UserContext()).
			Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("request failed")
	}
	return c.Status(code.HTTPStatus()).JSON(fiber.Map{
		"error": apperr.MessageOf(err),
		"code":  code,
	})
}

// Config is the fiber configuration every StockFlow app is built with.
func Config() fiber.Config {
	return fiber.Config{
		AppName:      "StockFlow",
		ErrorHandler: ErrorHandler,
	}
}

func parseID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Newf(apperr.BadRequest, "invalid %s", name)
	}
	return id, nil
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.New(apperr.BadRequest, "Invalid JSON")
	}
	return nil
}

// currentUser returns the user attached by the guard chain.
func currentUser(c *fiber.Ctx) *model.User {
	user, _ := auth.UserFrom(c.UserContext())
	return user
}
