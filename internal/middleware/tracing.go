package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a server span per request, continuing any incoming trace.
func Tracing(serviceName string) fiber.Handler {
	tracer := otel.Tracer(serviceName)
	return func(c *fiber.Ctx) error {
		carrier := propagation.HeaderCarrier(http.Header(c.GetReqHeaders()))
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), carrier)

		ctx, span := tracer.Start(ctx, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.target", c.OriginalURL()),
			),
		)
		defer span.End()

		c.SetUserContext(ctx)
		err := c.Next()

		span.SetName(c.Method() + " " + c.Route().Path)
		status := responseStatus(c, err)
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= fiber.StatusInternalServerError {
			if err != nil {
				span.RecordError(err)
			}
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		return err
	}
}
