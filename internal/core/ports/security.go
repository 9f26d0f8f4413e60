package ports

import (
	"time"

	"github.com/higher/admin-access/internal/core/domain"
)

// PasswordHasher produces and checks salted one-way digests.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// VerifiedToken is the result of a successful token verification.
type VerifiedToken struct {
	Identity  domain.Identity
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenManager issues and verifies signed, time-limited tokens. Verify never
// touches a store.
type TokenManager interface {
	Issue(identity domain.Identity) (token string, expiresAt time.Time, err error)
	Verify(token string) (VerifiedToken, error)
}
