package ports

import (
	"context"

	"github.com/higher/admin-access/internal/core/domain"
)

// UserRepository persists user credentials. Unique email/phone violations
// surface as *domain.ConflictError; missing rows as domain.ErrUserNotFound.
type UserRepository interface {
	// Create inserts the user and its initial grants in one transaction.
	Create(ctx context.Context, user *domain.User, operations []string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	// List returns all users except the one registered under excludeEmail.
	List(ctx context.Context, excludeEmail string) ([]*domain.User, error)
	UpdatePassword(ctx context.Context, id int64, hash string, mustReset bool) error
	SetActive(ctx context.Context, id int64, active bool) error
}
