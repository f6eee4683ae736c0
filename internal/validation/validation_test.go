package validation

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidationError_IsInvalid(t *testing.T) {
	err := error(NewError("comment", "comment is required"))
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Equal(t, "comment: comment is required", err.Error())

	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "comment", verr.Field)
}

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain", "contacts", false},
		{"underscore", "contact_user", false},
		{"leading underscore", "_tmp", false},
		{"empty", "", true},
		{"injection", "users; DROP TABLE users", true},
		{"quoted", `"users"`, true},
		{"leading digit", "1users", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.input, "tables.contacts")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUUID(t *testing.T) {
	assert.NoError(t, ValidateUUID(uuid.NewString(), "id"))
	assert.Error(t, ValidateUUID("", "id"))
	assert.Error(t, ValidateUUID("not-a-uuid", "id"))
}

func TestValidateRequired(t *testing.T) {
	assert.NoError(t, ValidateRequired("Legal", "name"))
	assert.Error(t, ValidateRequired("   ", "name"))
}
