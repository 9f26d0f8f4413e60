package ports

import (
	"context"

	"github.com/higher/admin-access/internal/core/domain"
)

// ReplaceGrantsInput names the target either by id or by email. UserID wins
// when both are set.
type ReplaceGrantsInput struct {
	Actor      domain.Identity
	UserID     int64
	Email      string
	Operations []string
}

// AccessService answers authorization questions and administers grants.
type AccessService interface {
	Check(ctx context.Context, userID int64, operation string) error
	Verify(ctx context.Context, userID int64, candidates []string) (map[string]bool, error)
	List(ctx context.Context, userID int64) ([]string, error)
	Replace(ctx context.Context, in ReplaceGrantsInput) (int64, error)
}
