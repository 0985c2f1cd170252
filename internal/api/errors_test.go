package api

import (
	"fmt"
	"net/http"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"

	"github.com/trustfabric/agentca/internal/apperr"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		expectCode int
		expectMsg  string
	}{
		{
			name:       "validation error maps to 400",
			err:        apperr.NewValidationError("name", "missing field"),
			expectCode: http.StatusBadRequest,
			expectMsg:  "missing field",
		},
		{
			name:       "not found maps to 404",
			err:        fmt.Errorf("wrapped: %w", apperr.ErrNotFound),
			expectCode: http.StatusNotFound,
			expectMsg:  "entity not found",
		},
		{
			name:       "not eligible maps to 422",
			err:        apperr.ErrNotEligible,
			expectCode: http.StatusUnprocessableEntity,
			expectMsg:  "does not meet certification requirements",
		},
		{
			name:       "already exists maps to 409",
			err:        fmt.Errorf("wrapped: %w", apperr.ErrAlreadyExists),
			expectCode: http.StatusConflict,
			expectMsg:  "entity already exists",
		},
		{
			name:       "coded precondition failed maps to 409",
			err:        apperr.New(apperr.KindPreconditionFailed, "evaluation is not cancellable", nil),
			expectCode: http.StatusConflict,
			expectMsg:  "evaluation is not cancellable",
		},
		{
			name:       "unknown error maps to 500 without leaking detail",
			err:        fmt.Errorf("something unexpected happened"),
			expectCode: http.StatusInternalServerError,
			expectMsg:  "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he := mapError(tt.err)
			assert.IsType(t, &echo.HTTPError{}, he)
			assert.Equal(t, tt.expectCode, he.Code)
			assert.Contains(t, he.Error(), tt.expectMsg)
		})
	}
}
