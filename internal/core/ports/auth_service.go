package ports

import (
	"context"
	"time"

	"github.com/higher/admin-access/internal/core/domain"
)

// SignupInput is the DTO passed from the transport layer to AuthService.Signup.
type SignupInput struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Password   string
	Operations []string
	// Actor is the authenticated caller, nil for self-signup. Initial
	// operations require an actor holding update_access.
	Actor *domain.Identity
}

// LoginResult carries a freshly issued token.
type LoginResult struct {
	UserID    int64
	Token     string
	ExpiresAt time.Time
}

// AuthService covers credential issuance and credential administration.
type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	// Authenticate verifies the token and checks it against the revocation store.
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
	ResetPassword(ctx context.Context, email, current, next string) error
	AdminSetPassword(ctx context.Context, actor domain.Identity, email, password string) (int64, error)
	SetStatus(ctx context.Context, actor domain.Identity, userID int64, active bool) error
	ListUsers(ctx context.Context) ([]*domain.User, error)
}
