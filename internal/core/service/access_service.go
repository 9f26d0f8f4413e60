package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/higher/admin-access/internal/api/metrics"
	"github.com/higher/admin-access/internal/core/domain"
	"github.com/higher/admin-access/internal/core/ports"
)

// AccessService answers per-operation authorization questions and replaces
// grant sets.
type AccessService struct {
	users  ports.UserRepository
	grants ports.GrantRepository
	audit  ports.AuditRecorder
	log    zerolog.Logger
	opts   options
}

func NewAccessService(
	users ports.UserRepository,
	grants ports.GrantRepository,
	audit ports.AuditRecorder,
	log zerolog.Logger,
	opts ...Option,
) *AccessService {
	return &AccessService{
		users:  users,
		grants: grants,
		audit:  audit,
		log:    log,
		opts:   buildOptions(opts),
	}
}

// Check returns nil when userID holds operation and domain.ErrAccessDenied
// when it does not.
func (s *AccessService) Check(ctx context.Context, userID int64, operation string) error {
	ok, err := s.grants.Has(ctx, userID, operation)
	if err != nil {
		metrics.AccessChecksTotal.WithLabelValues(operation, "error").Inc()
		return err
	}
	if !ok {
		metrics.AccessChecksTotal.WithLabelValues(operation, "denied").Inc()
		return domain.ErrAccessDenied
	}
	metrics.AccessChecksTotal.WithLabelValues(operation, "allowed").Inc()
	return nil
}

// Verify maps every candidate to whether userID holds it, using a single
// store query. Results are keyed by the candidate as sent; surrounding
// whitespace is ignored for the lookup and blank candidates are left out.
func (s *AccessService) Verify(ctx context.Context, userID int64, candidates []string) (map[string]bool, error) {
	names := domain.NormalizeOperations(candidates)
	out := make(map[string]bool, len(candidates))
	if len(names) == 0 {
		return out, nil
	}

	held, err := s.grants.Granted(ctx, userID, names)
	if err != nil {
		return nil, err
	}
	granted := make(map[string]struct{}, len(held))
	for _, n := range held {
		granted[n] = struct{}{}
	}
	for _, c := range candidates {
		name := strings.TrimSpace(c)
		if name == "" {
			continue
		}
		_, ok := granted[name]
		out[c] = ok
	}
	return out, nil
}

func (s *AccessService) List(ctx context.Context, userID int64) ([]string, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.grants.List(ctx, userID)
}

// Replace swaps the target's grants for in.Operations and returns the target
// id. The super-administrator is never modified.
func (s *AccessService) Replace(ctx context.Context, in ports.ReplaceGrantsInput) (int64, error) {
	ops := domain.NormalizeOperations(in.Operations)
	if err := checkOperations(ops); err != nil {
		return 0, err
	}

	target, err := s.resolveTarget(ctx, in)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			metrics.GrantReplacementsTotal.WithLabelValues("not_found").Inc()
		case errors.Is(err, domain.ErrProtectedIdentity):
			metrics.GrantReplacementsTotal.WithLabelValues("protected").Inc()
		}
		return 0, err
	}

	if err := s.grants.Replace(ctx, target.ID, ops); err != nil {
		metrics.GrantReplacementsTotal.WithLabelValues("error").Inc()
		return 0, err
	}
	metrics.GrantReplacementsTotal.WithLabelValues("replaced").Inc()

	s.audit.Record(ctx, domain.AuditEvent{
		Kind:       domain.AuditGrantsReplaced,
		ActorID:    in.Actor.UserID,
		TargetID:   target.ID,
		Operations: ops,
		At:         s.opts.now().UTC(),
	})
	s.log.Info().
		Int64("actor_id", in.Actor.UserID).
		Int64("user_id", target.ID).
		Strs("operations", ops).
		Msg("grants replaced")
	return target.ID, nil
}

func (s *AccessService) resolveTarget(ctx context.Context, in ports.ReplaceGrantsInput) (*domain.User, error) {
	var (
		user *domain.User
		err  error
	)
	switch {
	case in.UserID > 0:
		user, err = s.users.FindByID(ctx, in.UserID)
	case in.Email != "":
		if in.Email == s.opts.superAdminEmail {
			return nil, domain.ErrProtectedIdentity
		}
		user, err = s.users.FindByEmail(ctx, in.Email)
	default:
		return nil, domain.NewValidationError("user_id", "user_id or email is required")
	}
	if err != nil {
		return nil, err
	}
	if user.Email == s.opts.superAdminEmail {
		return nil, domain.ErrProtectedIdentity
	}
	return user, nil
}
