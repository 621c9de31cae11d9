package middleware

import (
	"strconv"
	"time"

	"stockflow/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// Metrics instruments requests with Prometheus metrics, labelled by route
// pattern so ids do not explode label cardinality.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		metrics.ObserveHTTPRequest(c.Method(), c.Route().Path, strconv.Itoa(responseStatus(c, err)), time.Since(start))
		return err
	}
}
