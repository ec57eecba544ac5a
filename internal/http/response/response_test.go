package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glift-app/glift-billing/internal/models"
)

func TestStatusOKWithData(t *testing.T) {
	data := map[string]string{"key": "value"}
	resp := StatusOKWithData(data)

	assert.Equal(t, StatusOK, resp.Status)
	assert.Empty(t, resp.Error)
	assert.Equal(t, data, resp.Data)
}

func TestError(t *testing.T) {
	resp := Error("something went wrong")

	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "something went wrong", resp.Error)
}

func TestValidationError(t *testing.T) {
	type request struct {
		Plan  string `validate:"required,oneof=starter premium"`
		Email string `validate:"email"`
		Note  string `validate:"required"`
	}

	err := validator.New().Struct(request{Plan: "gold", Email: "nope"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "field Plan must be one of: starter premium")
	assert.Contains(t, resp.Error, "field Email must be a valid email")
	assert.Contains(t, resp.Error, "field Note is a required field")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"unauthenticated", models.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{"unknown user", fmt.Errorf("op: %w", models.ErrUserNotFound), http.StatusUnauthorized, "unauthenticated"},
		{"invalid request", fmt.Errorf("op: %w", models.ErrInvalidRequest), http.StatusBadRequest, "invalid request"},
		{"invalid signature", fmt.Errorf("op: %w: %w", models.ErrInvalidSignature, errors.New("no match")), http.StatusBadRequest, "invalid signature"},
		{"external", fmt.Errorf("op: %w: %w", models.ErrExternalService, errors.New("timeout")), http.StatusInternalServerError, "billing provider unavailable"},
		{"client secret", models.ErrClientSecretUnavailable, http.StatusInternalServerError, "client secret unavailable"},
		{"unexpected", errors.New("db down"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := StatusFor(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}
