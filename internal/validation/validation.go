/*-------------------------------------------------------------------------
 *
 * validation.go
 *    Input validation helpers
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/validation/validation.go
 *
 *-------------------------------------------------------------------------
 */

package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

/* ErrInvalid is matched by every ValidationError through errors.Is */
var ErrInvalid = errors.New("validation failed")

/* ValidationError represents a validation error on one input field */
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

/* Is lets errors.Is(err, ErrInvalid) match any validation error */
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

/* NewError builds a ValidationError */
func NewError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

/* ValidateIdentifier checks that a configured table or column name is a plain SQL identifier */
func ValidateIdentifier(name, fieldName string) error {
	if !identifierPattern.MatchString(name) {
		return NewError(fieldName, fmt.Sprintf("invalid SQL identifier %q", name))
	}
	return nil
}

/* ValidateRequired checks that a string is not blank */
func ValidateRequired(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return NewError(fieldName, fieldName+" is required")
	}
	return nil
}

/* ValidateUUID validates a UUID string format */
func ValidateUUID(s, fieldName string) error {
	if s == "" {
		return NewError(fieldName, fieldName+" cannot be empty")
	}

	s = strings.ToLower(strings.TrimSpace(s))
	if _, err := uuid.Parse(s); err != nil {
		return NewError(fieldName, "invalid UUID format")
	}

	return nil
}
