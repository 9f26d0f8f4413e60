package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrMissingCredential     = errors.New("missing credential")
	ErrInvalidToken          = errors.New("invalid or expired token")
	ErrAccessDenied          = errors.New("access denied")
	ErrProtectedIdentity     = errors.New("super admin identity cannot be modified")
	ErrUserNotFound          = errors.New("user not found")
	ErrUserExists            = errors.New("user already exists")
	ErrIncorrectCredential   = errors.New("incorrect credential")
	ErrPasswordResetRequired = errors.New("password reset required")
	ErrAccountInactive       = errors.New("account is inactive")
	ErrStoreTimeout          = errors.New("store call timed out")
)

// ValidationError reports malformed input field by field.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

// ConflictError reports a uniqueness violation on Field.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return ErrUserExists.Error()
	}
	return fmt.Sprintf("%s already registered", e.Field)
}

// Is lets errors.Is(err, ErrUserExists) match any conflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrUserExists
}
