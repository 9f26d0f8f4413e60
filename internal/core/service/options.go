package service

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/higher/admin-access/internal/core/domain"
)

// DefaultMinPasswordLength is the shortest password accepted at signup and reset.
const DefaultMinPasswordLength = 5

// MaxPasswordBytes is the longest password bcrypt will hash.
const MaxPasswordBytes = 72

// Option configures AuthService and AccessService.
type Option func(*options)

type options struct {
	superAdminEmail   string
	minPasswordLength int
	now               func() time.Time
}

func defaultOptions() options {
	return options{
		superAdminEmail:   domain.DefaultSuperAdminEmail,
		minPasswordLength: DefaultMinPasswordLength,
		now:               time.Now,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithSuperAdminEmail sets the protected identity. Empty keeps the default.
func WithSuperAdminEmail(email string) Option {
	return func(o *options) {
		if email != "" {
			o.superAdminEmail = email
		}
	}
}

// WithMinPasswordLength overrides DefaultMinPasswordLength. Values < 1 are ignored.
func WithMinPasswordLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.minPasswordLength = n
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func (o options) checkPassword(field, password string) error {
	if utf8.RuneCountInString(password) < o.minPasswordLength {
		return domain.NewValidationError(field, "password is too short")
	}
	if len(password) > MaxPasswordBytes {
		return domain.NewValidationError(field,
			fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes))
	}
	return nil
}

func checkOperations(ops []string) error {
	for _, op := range ops {
		if utf8.RuneCountInString(op) > domain.MaxOperationLength {
			return domain.NewValidationError("operations",
				fmt.Sprintf("operation names are limited to %d characters", domain.MaxOperationLength))
		}
	}
	return nil
}
