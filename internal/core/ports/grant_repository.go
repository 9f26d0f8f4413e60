package ports

import "context"

// GrantRepository persists (user, operation) grants.
type GrantRepository interface {
	Has(ctx context.Context, userID int64, operation string) (bool, error)
	// Granted returns the subset of candidates the user holds, in one query.
	Granted(ctx context.Context, userID int64, candidates []string) ([]string, error)
	List(ctx context.Context, userID int64) ([]string, error)
	// Replace atomically swaps the user's grants for operations. An empty
	// slice leaves the user with no grants.
	Replace(ctx context.Context, userID int64, operations []string) error
}
