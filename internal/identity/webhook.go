// Package identity talks to the external identity provider: it verifies the
// provider's signed webhooks and calls its management API.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	svix "github.com/svix/svix-webhooks/go"
)

const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"

	secretPrefix = "whsec_"
)

var (
	ErrMissingHeaders   = errors.New("missing svix headers")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Headers are the signature headers sent with every webhook delivery.
type Headers struct {
	ID        string
	Timestamp string
	Signature string
}

func (h Headers) complete() bool {
	return h.ID != "" && h.Timestamp != "" && h.Signature != ""
}

func (h Headers) header() http.Header {
	out := make(http.Header, 3)
	out.Set(HeaderID, h.ID)
	out.Set(HeaderTimestamp, h.Timestamp)
	out.Set(HeaderSignature, h.Signature)
	return out
}

// Verifier checks webhook payloads before they are trusted.
type Verifier interface {
	Verify(payload []byte, headers Headers) error
}

// SignatureVerifier checks deliveries with the svix webhook library,
// including its timestamp tolerance.
type SignatureVerifier struct {
	wh *svix.Webhook
}

// NewSignatureVerifier accepts the secret as shown in the provider dashboard
// ("whsec_" followed by base64).
func NewSignatureVerifier(secret string) (*SignatureVerifier, error) {
	if strings.TrimPrefix(secret, secretPrefix) == "" {
		return nil, errors.New("webhook secret is empty")
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook secret: %w", err)
	}
	return &SignatureVerifier{wh: wh}, nil
}

// Sign returns the "v1,<base64>" signature for a delivery.
func (v *SignatureVerifier) Sign(id string, timestamp time.Time, payload []byte) (string, error) {
	return v.wh.Sign(id, timestamp, payload)
}

func (v *SignatureVerifier) Verify(payload []byte, h Headers) error {
	if !h.complete() {
		return ErrMissingHeaders
	}
	if err := v.wh.Verify(payload, h.header()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Event is a provider webhook delivery.
type Event struct {
	Type   string   `json:"type"`
	Object string   `json:"object"`
	Data   UserData `json:"data"`
}

type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type UserData struct {
	ID             string         `json:"id"`
	EmailAddresses []EmailAddress `json:"email_addresses"`
	PublicMetadata struct {
		Role string `json:"role"`
	} `json:"public_metadata"`
}

// PrimaryEmail returns the first listed address.
func (d UserData) PrimaryEmail() (string, bool) {
	if len(d.EmailAddresses) == 0 || d.EmailAddresses[0].EmailAddress == "" {
		return "", false
	}
	return d.EmailAddresses[0].EmailAddress, true
}

// ParseEvent decodes a verified payload.
func ParseEvent(payload []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if evt.Type == "" {
		return nil, errors.New("invalid webhook payload: missing type")
	}
	return &evt, nil
}
