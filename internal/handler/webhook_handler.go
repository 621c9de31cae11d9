package handler

import (
	"errors"

	"stockflow/internal/apperr"
	"stockflow/internal/identity"
	"stockflow/internal/service"
	"stockflow/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// WebhookHandler receives identity provider deliveries. It answers in the
// provider's expected shapes instead of the API error format.
type WebhookHandler struct {
	verifier identity.Verifier
	sync     service.IdentitySyncService
}

func NewWebhookHandler(v identity.Verifier, s service.IdentitySyncService) *WebhookHandler {
	return &WebhookHandler{verifier: v, sync: s}
}

func (h *WebhookHandler) HandleIdentityEvent(c *fiber.Ctx) error {
	ctx := c.UserContext()
	headers := identity.Headers{
		ID:        c.Get(identity.HeaderID),
		Timestamp: c.Get(identity.HeaderTimestamp),
		Signature: c.Get(identity.HeaderSignature),
	}
	// fasthttp reuses the body buffer after the handler returns
	payload := append([]byte(nil), c.Body()...)

	if err := h.verifier.Verify(payload, headers); err != nil {
		if errors.Is(err, identity.ErrMissingHeaders) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing svix headers"})
		}
		logger.Warn(ctx).Err(err).Str("svix_id", headers.ID).Msg("webhook verification failed")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid signature"})
	}

	evt, err := identity.ParseEvent(payload)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payload"})
	}

	logger.Info(ctx).Str("event_type", evt.Type).Str("external_id", evt.Data.ID).Msg("webhook received")

	if err := h.sync.HandleEvent(ctx, evt); err != nil {
		if apperr.CodeOf(err) == apperr.BadRequest {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": apperr.MessageOf(err)})
		}
		logger.Error(ctx).Err(err).Str("event_type", evt.Type).Msg("webhook handler error")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal server error",
			"message": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"message": "Success", "eventType": evt.Type})
}
