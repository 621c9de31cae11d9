package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"stockflow/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	cause := errors.New("disk on fire")

	assert.Equal(t, apperr.NotFound, apperr.CodeOf(apperr.New(apperr.NotFound, "missing")))
	assert.Equal(t, apperr.BadRequest, apperr.CodeOf(fmt.Errorf("outer: %w", apperr.New(apperr.BadRequest, "bad"))))
	assert.Equal(t, apperr.Internal, apperr.CodeOf(cause))

	wrapped := apperr.Wrap(apperr.Internal, cause, "failed to save")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "failed to save", apperr.MessageOf(wrapped))
	assert.Equal(t, "Internal Server Error", apperr.MessageOf(cause))
	assert.True(t, apperr.Is(wrapped, apperr.Internal))
	assert.False(t, apperr.Is(cause, apperr.Internal))
}

func TestHTTPStatus(t *testing.T) {
	tests := map[apperr.Code]int{
		apperr.Unauthenticated: http.StatusUnauthorized,
		apperr.Forbidden:       http.StatusForbidden,
		apperr.NotFound:        http.StatusNotFound,
		apperr.BadRequest:      http.StatusBadRequest,
		apperr.Internal:        http.StatusInternalServerError,
		apperr.Code("BOGUS"):   http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, code.HTTPStatus(), code)
	}
}
