package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"domain error passes through", NewForbidden("nope"), CodeForbidden, http.StatusForbidden},
		{"wrapped domain error", fmt.Errorf("ctx: %w", NewStateError("moved", nil)), CodeInvalidState, http.StatusConflict},
		{"no rows is not found", pgx.ErrNoRows, CodeNotFound, http.StatusNotFound},
		{"malformed uuid is not found", &pgconn.PgError{Code: "22P02"}, CodeNotFound, http.StatusNotFound},
		{"other pg errors are internal", &pgconn.PgError{Code: "23503"}, CodeInternal, http.StatusInternalServerError},
		{"anything else is internal", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
		{"exhausted ids", NewRequestIDExhausted(errors.New("full")), CodeRequestIDExhausted, http.StatusInternalServerError},
		{"integration off", NewNotConfigured("off"), CodeNotConfigured, http.StatusServiceUnavailable},
		{"upstream", NewUpstreamError("down", errors.New("dial")), CodeUpstream, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.status, got.HTTPStatus)
		})
	}
	assert.Nil(t, ToDomainError(nil))
	assert.NoError(t, MapError(nil))
}

func TestInternalErrorHidesCause(t *testing.T) {
	cause := errors.New("password=hunter2")
	err := ToDomainError(cause)
	assert.Equal(t, "internal server error", err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewValidationError("bad", map[string]any{"field": "title"}))
	assert.True(t, HasCode(err, CodeValidation))
	assert.False(t, HasCode(err, CodeForbidden))
	assert.False(t, HasCode(errors.New("plain"), CodeValidation))
}
