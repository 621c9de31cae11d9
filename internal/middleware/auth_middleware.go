package middleware

import (
	"strings"

	"stockflow/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// SessionVerifier turns a bearer token into the session subject.
type SessionVerifier interface {
	Verify(token string) (string, error)
}

// Session verifies the bearer token, when present, and stores the session in
// the request's user context. Requests without a valid token continue without
// a session; the guard chain decides whether that is acceptable.
func Session(verifier SessionVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Next()
		}

		// Extract token from "Bearer <token>"
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return c.Next()
		}

		subject, err := verifier.Verify(parts[1])
		if err != nil {
			return c.Next()
		}

		c.SetUserContext(auth.WithSession(c.UserContext(), auth.Session{Subject: subject}))
		return c.Next()
	}
}

// Guarded runs guard against the request context. Rejections go to the app's
// error handler; admitted requests continue with the enriched context.
func Guarded(guard auth.Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, err := guard(c.UserContext())
		if err != nil {
			return err
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}
