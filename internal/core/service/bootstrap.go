package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/higher/admin-access/internal/core/domain"
	"github.com/higher/admin-access/internal/core/ports"
)

// defaultSuperAdminPhone fills the required phone column when none is configured.
const defaultSuperAdminPhone = "0000000000"

// Bootstrap creates the super-administrator on first start. It holds every
// catalog grant and must reset its password before the first login.
type Bootstrap struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
	log    zerolog.Logger
	opts   options
}

func NewBootstrap(users ports.UserRepository, hasher ports.PasswordHasher, log zerolog.Logger, opts ...Option) *Bootstrap {
	return &Bootstrap{users: users, hasher: hasher, log: log, opts: buildOptions(opts)}
}

// EnsureSuperAdmin is a no-op when the account already exists or when
// password is empty. A concurrent creation by another instance is not an error.
func (b *Bootstrap) EnsureSuperAdmin(ctx context.Context, password, phone string) error {
	email := b.opts.superAdminEmail

	_, err := b.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return err
	}

	if password == "" {
		b.log.Warn().Str("email", email).Msg("super admin missing and no bootstrap password configured")
		return nil
	}

	hash, err := b.hasher.Hash(password)
	if err != nil {
		return err
	}

	if phone == "" {
		phone = defaultSuperAdminPhone
	}

	now := b.opts.now().UTC()
	created, err := b.users.Create(ctx, &domain.User{
		FirstName:         "Super",
		LastName:          "Admin",
		Email:             email,
		Phone:             phone,
		PasswordHash:      hash,
		Active:            true,
		MustResetPassword: true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, domain.Catalog())
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil
		}
		return err
	}

	b.log.Info().Int64("user_id", created.ID).Str("email", email).Msg("super admin created")
	return nil
}
