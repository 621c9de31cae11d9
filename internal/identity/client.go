package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"stockflow/internal/retry"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/user"
)

// Client calls the identity provider's backend API.
type Client struct {
	users *user.Client
	retry *retry.Config
}

// NewClient builds a client for the backend API at baseURL (for example
// "https://api.clerk.com") authenticated with secretKey.
func NewClient(baseURL, secretKey string) *Client {
	config := &clerk.ClientConfig{}
	config.Key = clerk.String(secretKey)
	config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	if baseURL != "" {
		config.URL = clerk.String(strings.TrimRight(baseURL, "/"))
	}
	return &Client{
		users: user.NewClient(config),
		retry: retry.DefaultConfig(),
	}
}

// WithRetry overrides the retry strategy for server-side failures.
func (c *Client) WithRetry(cfg *retry.Config) *Client {
	c.retry = cfg
	return c
}

// StatusCode returns the HTTP status of a provider error, or 0 when the
// request never got a response.
func StatusCode(err error) int {
	var apiErr *clerk.APIErrorResponse
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	return 0
}

func retryableStatus(err error) bool {
	if status := StatusCode(err); status != 0 {
		return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
	}
	// transport failures
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// DeleteUser removes the provider account. An account that is already gone
// counts as deleted.
func (c *Client) DeleteUser(ctx context.Context, externalID string) error {
	_, err := retry.Do(ctx, c.retry, "identity.delete_user", retryableStatus, func(ctx context.Context) (*clerk.DeletedResource, error) {
		deleted, err := c.users.Delete(ctx, externalID)
		if StatusCode(err) == http.StatusNotFound {
			return nil, nil
		}
		return deleted, err
	})
	return err
}
