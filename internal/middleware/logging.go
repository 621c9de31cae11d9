package middleware

import (
	"time"

	"stockflow/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// RequestLogger logs every request with structured fields once it completes.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		chainErr := c.Next()

		status := responseStatus(c, chainErr)

		ctx := c.UserContext()
		duration := time.Since(start)
		event := logger.Info(ctx)
		if status >= fiber.StatusInternalServerError {
			event = logger.Error(ctx)
		} else if status >= fiber.StatusBadRequest {
			event = logger.Warn(ctx)
		}

		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("duration", duration).
			Int64("duration_ms", duration.Milliseconds()).
			Str("ip", c.IP()).
			Msg("HTTP request completed")

		return chainErr
	}
}
