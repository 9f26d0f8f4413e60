package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/higher/admin-access/internal/core/domain"
)

// GrantRepository implements ports.GrantRepository on the api_access table.
type GrantRepository struct {
	db      *sql.DB
	timeout time.Duration
}

func NewGrantRepository(db *sql.DB, timeout time.Duration) *GrantRepository {
	return &GrantRepository{db: db, timeout: timeout}
}

func (r *GrantRepository) Has(ctx context.Context, userID int64, operation string) (bool, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM api_access WHERE user_id = $1 AND api_name = $2)`,
		userID, operation).Scan(&ok)
	if err != nil {
		return false, storeError(ctx, "check grant", err)
	}
	return ok, nil
}

func (r *GrantRepository) Granted(ctx context.Context, userID int64, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return []string{}, nil
	}

	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT api_name FROM api_access WHERE user_id = $1 AND api_name = ANY($2::text[])`,
		userID, candidates)
	if err != nil {
		return nil, storeError(ctx, "verify grants", err)
	}
	return collectNames(ctx, "verify grants", rows)
}

func (r *GrantRepository) List(ctx context.Context, userID int64) ([]string, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT api_name FROM api_access WHERE user_id = $1 ORDER BY api_name`, userID)
	if err != nil {
		return nil, storeError(ctx, "list grants", err)
	}
	return collectNames(ctx, "list grants", rows)
}

// Replace deletes every grant of the user and inserts operations in the same
// transaction. Concurrent readers see either the old or the new set; the user
// row lock serializes concurrent replaces for the same user.
func (r *GrantRepository) Replace(ctx context.Context, userID int64, operations []string) error {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	err := withTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		var locked int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE user_id = $1 FOR UPDATE`, userID).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM api_access WHERE user_id = $1`, userID); err != nil {
			return err
		}
		return insertGrants(ctx, tx, userID, operations)
	})
	return storeError(ctx, "replace grants", err)
}

func insertGrants(ctx context.Context, tx DBTX, userID int64, operations []string) error {
	if len(operations) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO api_access (user_id, api_name)
		SELECT $1, name FROM unnest($2::text[]) AS name
		ON CONFLICT (user_id, api_name) DO NOTHING`,
		userID, operations)
	return err
}

func collectNames(ctx context.Context, op string, rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storeError(ctx, op, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(ctx, op, err)
	}
	return names, nil
}
