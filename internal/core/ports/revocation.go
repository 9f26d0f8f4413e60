package ports

import (
	"context"
	"time"
)

// RevocationStore remembers when a user's outstanding tokens were revoked.
type RevocationStore interface {
	// RevokeBefore invalidates every token for userID issued before at.
	RevokeBefore(ctx context.Context, userID int64, at time.Time) error
	// IsRevoked reports whether a token issued at issuedAt has been revoked.
	IsRevoked(ctx context.Context, userID int64, issuedAt time.Time) (bool, error)
}
