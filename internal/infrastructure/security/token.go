package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/higher/admin-access/internal/core/domain"
	"github.com/higher/admin-access/internal/core/ports"
)

// DefaultTokenTTL is the validity window used when none is configured.
const DefaultTokenTTL = time.Hour

// MinSecretLength is the shortest accepted HMAC signing secret.
const MinSecretLength = 32

// iat and exp carry milliseconds so a revocation cutoff can separate tokens
// minted within the same second.
const tokenTimePrecision = time.Millisecond

func init() {
	jwt.TimePrecision = tokenTimePrecision
}

// Claims is the JWT payload asserting a user identity.
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// JWTManager issues and verifies HS256 tokens with a single process-wide secret.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option customises a JWTManager.
type Option func(*JWTManager)

// WithClock replaces the wall clock, used for both issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(m *JWTManager) { m.now = now }
}

// NewJWTManager builds a manager. The secret is copied so later mutation of
// the caller's slice has no effect.
func NewJWTManager(secret []byte, ttl time.Duration, opts ...Option) (*JWTManager, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	m := &JWTManager{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL returns the configured token lifetime.
func (m *JWTManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for identity valid from now until now+TTL.
func (m *JWTManager) Issue(identity domain.Identity) (string, time.Time, error) {
	issuedAt := m.now().UTC().Truncate(tokenTimePrecision)
	expiresAt := issuedAt.Add(m.ttl)

	claims := Claims{
		UserID: identity.UserID,
		Email:  identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, algorithm, expiry and claim shape. Every failure
// is reported as domain.ErrInvalidToken; the cause is wrapped for logging only.
func (m *JWTManager) Verify(token string) (ports.VerifiedToken, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return ports.VerifiedToken{}, fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return ports.VerifiedToken{}, domain.ErrInvalidToken
	}
	if err := claims.validateShape(); err != nil {
		return ports.VerifiedToken{}, fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}

	return ports.VerifiedToken{
		Identity:  domain.Identity{UserID: claims.UserID, Email: claims.Email},
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (c *Claims) validateShape() error {
	switch {
	case c.UserID <= 0:
		return errors.New("missing user_id claim")
	case c.Email == "":
		return errors.New("missing email claim")
	case c.IssuedAt == nil:
		return errors.New("missing iat claim")
	}
	return nil
}
