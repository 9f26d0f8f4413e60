package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/higher/admin-access/internal/core/domain"
)

const userColumns = `user_id, first_name, last_name, email, phone_no, password_hash,
	active, must_reset_password, created_at, updated_at`

// UserRepository implements ports.UserRepository on PostgreSQL.
type UserRepository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewUserRepository binds the repository to a pool. Each call is bounded by timeout.
func NewUserRepository(db *sql.DB, timeout time.Duration) *UserRepository {
	return &UserRepository{db: db, timeout: timeout}
}

// Create inserts the user row and its grants in a single transaction, so a
// failed grant insert never leaves a half-provisioned account behind.
func (r *UserRepository) Create(ctx context.Context, user *domain.User, operations []string) (*domain.User, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	created := *user
	err := withTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		query := `INSERT INTO users (first_name, last_name, email, phone_no, password_hash, active, must_reset_password)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING user_id, created_at, updated_at`

		err := tx.QueryRowContext(ctx, query,
			user.FirstName, user.LastName, user.Email, user.Phone, user.PasswordHash,
			user.Active, user.MustResetPassword,
		).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
		if err != nil {
			return err
		}

		return insertGrants(ctx, tx, created.ID, operations)
	})
	if err != nil {
		return nil, storeError(ctx, "create user", err)
	}

	return &created, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(ctx, "find user by email", row)
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, id)
	return scanUser(ctx, "find user by id", row)
}

func (r *UserRepository) List(ctx context.Context, excludeEmail string) ([]*domain.User, error) {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email <> $1 ORDER BY user_id`, excludeEmail)
	if err != nil {
		return nil, storeError(ctx, "list users", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(ctx, "list users", rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(ctx, "list users", err)
	}
	return users, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string, mustReset bool) error {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, must_reset_password = $2, updated_at = now() WHERE user_id = $3`,
		hash, mustReset, id)
	return affectedOne(ctx, "update password", res, err)
}

func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	ctx, cancel := bounded(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET active = $1, updated_at = now() WHERE user_id = $2`, active, id)
	return affectedOne(ctx, "set user status", res, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(ctx context.Context, op string, row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.PasswordHash,
		&u.Active, &u.MustResetPassword, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storeError(ctx, op, err)
	}
	return u, nil
}

func affectedOne(ctx context.Context, op string, res sql.Result, err error) error {
	if err != nil {
		return storeError(ctx, op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeError(ctx, op, err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
