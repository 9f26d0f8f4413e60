package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/higher/admin-access/internal/api/metrics"
	"github.com/higher/admin-access/internal/core/domain"
	"github.com/higher/admin-access/internal/core/ports"
)

// AuthService implements signup, login, token authentication and password
// administration.
type AuthService struct {
	users       ports.UserRepository
	grants      ports.GrantRepository
	hasher      ports.PasswordHasher
	tokens      ports.TokenManager
	revocations ports.RevocationStore
	audit       ports.AuditRecorder
	log         zerolog.Logger
	opts        options
}

// NewAuthService wires the service. revocations may be nil, in which case
// tokens stay valid until they expire.
func NewAuthService(
	users ports.UserRepository,
	grants ports.GrantRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenManager,
	revocations ports.RevocationStore,
	audit ports.AuditRecorder,
	log zerolog.Logger,
	opts ...Option,
) *AuthService {
	return &AuthService{
		users:       users,
		grants:      grants,
		hasher:      hasher,
		tokens:      tokens,
		revocations: revocations,
		audit:       audit,
		log:         log,
		opts:        buildOptions(opts),
	}
}

func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
	if err := s.opts.checkPassword("password", in.Password); err != nil {
		return nil, err
	}
	ops := domain.NormalizeOperations(in.Operations)
	if err := checkOperations(ops); err != nil {
		return nil, err
	}
	if in.Email == s.opts.superAdminEmail {
		return nil, domain.ErrProtectedIdentity
	}

	var actorID int64
	if len(ops) > 0 {
		if in.Actor == nil {
			return nil, domain.ErrMissingCredential
		}
		ok, err := s.grants.Has(ctx, in.Actor.UserID, domain.OpUpdateAccess)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrAccessDenied
		}
	}
	if in.Actor != nil {
		actorID = in.Actor.UserID
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.opts.now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, ops)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domain.AuditEvent{
		Kind:       domain.AuditSignup,
		ActorID:    actorID,
		TargetID:   created.ID,
		Operations: ops,
		At:         now,
	})
	s.log.Info().Int64("user_id", created.ID).Int("grants", len(ops)).Msg("user signed up")
	return created, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginAttemptsTotal.WithLabelValues("not_found").Inc()
		} else {
			metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		metrics.LoginAttemptsTotal.WithLabelValues("incorrect_credential").Inc()
		return nil, domain.ErrIncorrectCredential
	}
	if user.MustResetPassword {
		metrics.LoginAttemptsTotal.WithLabelValues("reset_required").Inc()
		return nil, domain.ErrPasswordResetRequired
	}
	if !user.Active {
		metrics.LoginAttemptsTotal.WithLabelValues("inactive").Inc()
		return nil, domain.ErrAccountInactive
	}

	token, expiresAt, err := s.tokens.Issue(domain.Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return &ports.LoginResult{UserID: user.ID, Token: token, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a bearer token to an identity. Signature and expiry
// are checked first; the revocation store is only consulted for tokens that
// pass both.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		metrics.TokenVerificationsTotal.WithLabelValues("missing").Inc()
		return domain.Identity{}, domain.ErrMissingCredential
	}

	verified, err := s.tokens.Verify(token)
	if err != nil {
		metrics.TokenVerificationsTotal.WithLabelValues("rejected").Inc()
		return domain.Identity{}, err
	}

	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, verified.Identity.UserID, verified.IssuedAt)
		if err != nil {
			metrics.TokenVerificationsTotal.WithLabelValues("error").Inc()
			return domain.Identity{}, err
		}
		if revoked {
			metrics.TokenVerificationsTotal.WithLabelValues("revoked").Inc()
			return domain.Identity{}, domain.ErrInvalidToken
		}
	}

	metrics.TokenVerificationsTotal.WithLabelValues("ok").Inc()
	return verified.Identity, nil
}

// ResetPassword lets a user replace their own password and clears the
// must-reset flag. It is the only way out of a forced reset, including for
// the bootstrapped super-administrator.
func (s *AuthService) ResetPassword(ctx context.Context, email, current, next string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, user.PasswordHash) {
		return domain.ErrIncorrectCredential
	}
	if !user.Active {
		return domain.ErrAccountInactive
	}
	if err := s.opts.checkPassword("new_password", next); err != nil {
		return err
	}
	if next == current {
		return domain.NewValidationError("new_password", "new password must differ from the current one")
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, false); err != nil {
		return err
	}

	s.revoke(ctx, user.ID)
	s.audit.Record(ctx, domain.AuditEvent{
		Kind:     domain.AuditPasswordReset,
		ActorID:  user.ID,
		TargetID: user.ID,
		At:       s.opts.now().UTC(),
	})
	return nil
}

// AdminSetPassword sets another user's password and flags the account for a
// reset on next login. The super-administrator cannot be targeted.
func (s *AuthService) AdminSetPassword(ctx context.Context, actor domain.Identity, email, password string) (int64, error) {
	if email == s.opts.superAdminEmail {
		return 0, domain.ErrProtectedIdentity
	}
	if err := s.opts.checkPassword("password", password); err != nil {
		return 0, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return 0, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return 0, err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, true); err != nil {
		return 0, err
	}

	s.revoke(ctx, user.ID)
	s.audit.Record(ctx, domain.AuditEvent{
		Kind:     domain.AuditPasswordChanged,
		ActorID:  actor.UserID,
		TargetID: user.ID,
		At:       s.opts.now().UTC(),
	})
	s.log.Info().Int64("actor_id", actor.UserID).Int64("user_id", user.ID).Msg("password set by administrator")
	return user.ID, nil
}

// SetStatus activates or deactivates an account. Deactivation revokes the
// user's outstanding tokens.
func (s *AuthService) SetStatus(ctx context.Context, actor domain.Identity, userID int64, active bool) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Email == s.opts.superAdminEmail {
		return domain.ErrProtectedIdentity
	}
	if err := s.users.SetActive(ctx, user.ID, active); err != nil {
		return err
	}

	detail := "activated"
	if !active {
		detail = "deactivated"
		s.revoke(ctx, user.ID)
	}
	s.audit.Record(ctx, domain.AuditEvent{
		Kind:     domain.AuditStatusChanged,
		ActorID:  actor.UserID,
		TargetID: user.ID,
		Detail:   detail,
		At:       s.opts.now().UTC(),
	})
	s.log.Info().Int64("actor_id", actor.UserID).Int64("user_id", user.ID).Str("status", detail).Msg("user status changed")
	return nil
}

// ListUsers returns every account except the super-administrator.
func (s *AuthService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx, s.opts.superAdminEmail)
}

// revoke invalidates tokens issued before now. The mutation that triggered it
// has already committed, so a failure here is logged rather than returned.
func (s *AuthService) revoke(ctx context.Context, userID int64) {
	if s.revocations == nil {
		return
	}
	if err := s.revocations.RevokeBefore(ctx, userID, s.opts.now()); err != nil {
		s.log.Error().Err(err).Int64("user_id", userID).Msg("token revocation failed")
	}
}
