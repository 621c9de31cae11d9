package identity_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"stockflow/internal/identity"
	"stockflow/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func providerReturning(t *testing.T, calls *int32, statuses ...int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1/users/user_123", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		status := statuses[len(statuses)-1]
		if int(n) <= len(statuses) {
			status = statuses[n-1]
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status/100 == 2 {
			_, _ = w.Write([]byte(`{"id":"user_123","object":"user","deleted":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"errors":[{"code":"provider_error","message":"failed"}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDeleteUser(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantErr   bool
		wantCalls int32
	}{
		{"deleted", []int{http.StatusOK}, false, 1},
		{"already gone", []int{http.StatusNotFound}, false, 1},
		{"recovers from server errors", []int{http.StatusBadGateway, http.StatusInternalServerError, http.StatusOK}, false, 3},
		{"recovers from rate limiting", []int{http.StatusTooManyRequests, http.StatusOK}, false, 2},
		{"client error is final", []int{http.StatusUnprocessableEntity}, true, 1},
		{"server errors exhaust retries", []int{http.StatusServiceUnavailable}, true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := providerReturning(t, &calls, tt.statuses...)
			client := identity.NewClient(srv.URL, "sk_test").WithRetry(retry.Immediate(3))

			err := client.DeleteUser(context.Background(), "user_123")
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.statuses[len(tt.statuses)-1], identity.StatusCode(err))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}
