package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sam-bercovici/hydra-sidecar/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestDetailsOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected []ErrorDetail
	}{
		{
			name: "field error",
			err:  domain.ErrInvalidHash.WithField("clients[0].client_secret_hash", errors.New("invalid hash format")),
			expected: []ErrorDetail{
				{Field: "clients[0].client_secret_hash", Message: "invalid hash format"},
			},
		},
		{
			name: "field error wrapped again",
			err:  fmt.Errorf("sync: %w", domain.ErrInvalidField.WithField("clients[1].client_id", errors.New("client_id is required"))),
			expected: []ErrorDetail{
				{Field: "clients[1].client_id", Message: "client_id is required"},
			},
		},
		{
			name: "every violation of a request",
			err: domain.NewValidationError([]domain.FieldError{
				domain.ErrInvalidField.WithField("clients[0].client_id", errors.New("client_id is required")),
				domain.ErrInvalidHash.WithField("clients[2].client_secret_hash", errors.New("invalid hash format")),
			}),
			expected: []ErrorDetail{
				{Field: "clients[0].client_id", Message: "client_id is required"},
				{Field: "clients[2].client_secret_hash", Message: "invalid hash format"},
			},
		},
		{
			name: "wrapped without field",
			err:  domain.ErrDatabaseQuery.Wrap(errors.New("connection reset")),
		},
		{
			name: "sentinel",
			err:  domain.ErrEmptyClientList,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetailsOf(tt.err))
		})
	}
}
