package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/higher/admin-access/internal/core/domain"
	"github.com/higher/admin-access/internal/core/ports"
	"github.com/higher/admin-access/internal/infrastructure/security"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type authFixture struct {
	svc         *AuthService
	users       *stubUserRepo
	grants      *stubGrantRepo
	revocations *stubRevocations
	audit       *recordingAudit
	now         time.Time
}

func (f *authFixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		grants:      newStubGrantRepo(),
		revocations: newStubRevocations(),
		audit:       &recordingAudit{},
		now:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.users = newStubUserRepo(f.grants)
	clock := func() time.Time { return f.now }

	tokens, err := security.NewJWTManager([]byte(testSecret), time.Hour, security.WithClock(clock))
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	f.svc = NewAuthService(f.users, f.grants, plainHasher{}, tokens, f.revocations, f.audit, zerolog.Nop(),
		WithClock(clock))
	return f
}

func (f *authFixture) signup(t *testing.T, email, phone, password string) *domain.User {
	t.Helper()
	u, err := f.svc.Signup(context.Background(), ports.SignupInput{
		FirstName: "Test", LastName: "User", Email: email, Phone: phone, Password: password,
	})
	if err != nil {
		t.Fatalf("Signup(%s): %v", email, err)
	}
	return u
}

func (f *authFixture) login(t *testing.T, email, password string) *ports.LoginResult {
	t.Helper()
	res, err := f.svc.Login(context.Background(), email, password)
	if err != nil {
		t.Fatalf("Login(%s): %v", email, err)
	}
	return res
}

func TestAuthService_SignupLoginScenario(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user := f.signup(t, "a@x.com", "5550001", "abcde")
	if user.ID == 0 {
		t.Fatalf("expected user id to be assigned")
	}
	if user.PasswordHash == "abcde" {
		t.Fatalf("expected password to be hashed")
	}
	if !user.Active {
		t.Fatalf("expected new user to be active")
	}

	if _, err := f.svc.Login(ctx, "a@x.com", "wrong"); !errors.Is(err, domain.ErrIncorrectCredential) {
		t.Fatalf("expected ErrIncorrectCredential, got %v", err)
	}

	res := f.login(t, "a@x.com", "abcde")
	if res.Token == "" {
		t.Fatalf("expected token")
	}
	if res.UserID != user.ID {
		t.Fatalf("expected user id %d, got %d", user.ID, res.UserID)
	}
	if want := f.now.Add(time.Hour); !res.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, res.ExpiresAt)
	}

	id, err := f.svc.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id.Email != "a@x.com" || id.UserID != user.ID {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestAuthService_Signup_Validation(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Signup(context.Background(), ports.SignupInput{Email: "b@x.com", Phone: "1", Password: "abcd"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := verr.Fields["password"]; !ok {
		t.Fatalf("expected password field error, got %v", verr.Fields)
	}
	if _, err := f.users.FindByEmail(context.Background(), "b@x.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected no user to be stored, got %v", err)
	}
}

func TestAuthService_Signup_MinPasswordLengthOption(t *testing.T) {
	f := newAuthFixture(t)
	f.svc.opts = buildOptions([]Option{WithMinPasswordLength(8)})

	_, err := f.svc.Signup(context.Background(), ports.SignupInput{Email: "b@x.com", Phone: "1", Password: "abcdefg"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestAuthService_Signup_Conflict(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "a@x.com", "1", "abcde")

	_, err := f.svc.Signup(context.Background(), ports.SignupInput{Email: "a@x.com", Phone: "2", Password: "abcde"})
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	var cerr *domain.ConflictError
	if !errors.As(err, &cerr) || cerr.Field != "email" {
		t.Fatalf("expected conflict on email, got %v", err)
	}
}

func TestAuthService_Signup_ProtectedEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Signup(context.Background(), ports.SignupInput{
		Email: domain.DefaultSuperAdminEmail, Phone: "1", Password: "abcde",
	})
	if !errors.Is(err, domain.ErrProtectedIdentity) {
		t.Fatalf("expected ErrProtectedIdentity, got %v", err)
	}
}

func TestAuthService_Signup_InitialGrants(t *testing.T) {
	ctx := context.Background()

	t.Run("anonymous caller", func(t *testing.T) {
		f := newAuthFixture(t)
		_, err := f.svc.Signup(ctx, ports.SignupInput{
			Email: "a@x.com", Phone: "1", Password: "abcde", Operations: []string{domain.OpAllCustomer},
		})
		if !errors.Is(err, domain.ErrMissingCredential) {
			t.Fatalf("expected ErrMissingCredential, got %v", err)
		}
	})

	t.Run("caller without update_access", func(t *testing.T) {
		f := newAuthFixture(t)
		admin := f.signup(t, "admin@x.com", "9", "abcde")
		_, err := f.svc.Signup(ctx, ports.SignupInput{
			Email: "a@x.com", Phone: "1", Password: "abcde",
			Operations: []string{domain.OpAllCustomer},
			Actor:      &domain.Identity{UserID: admin.ID, Email: admin.Email},
		})
		if !errors.Is(err, domain.ErrAccessDenied) {
			t.Fatalf("expected ErrAccessDenied, got %v", err)
		}
	})

	t.Run("caller with update_access", func(t *testing.T) {
		f := newAuthFixture(t)
		admin := f.signup(t, "admin@x.com", "9", "abcde")
		f.grants.set(admin.ID, []string{domain.OpUpdateAccess})

		created, err := f.svc.Signup(ctx, ports.SignupInput{
			Email: "a@x.com", Phone: "1", Password: "abcde",
			Operations: []string{" all_customer ", "create_customer", "all_customer", ""},
			Actor:      &domain.Identity{UserID: admin.ID, Email: admin.Email},
		})
		if err != nil {
			t.Fatalf("Signup: %v", err)
		}
		got, _ := f.grants.List(ctx, created.ID)
		if len(got) != 2 || got[0] != "all_customer" || got[1] != "create_customer" {
			t.Fatalf("unexpected grants %v", got)
		}

		last := f.audit.events[len(f.audit.events)-1]
		if last.Kind != domain.AuditSignup || last.ActorID != admin.ID || last.TargetID != created.ID {
			t.Fatalf("unexpected audit event %+v", last)
		}
	})
}

func TestAuthService_Login_Failures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Login(ctx, "nobody@x.com", "abcde"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	reset := f.signup(t, "reset@x.com", "1", "abcde")
	_ = f.users.UpdatePassword(ctx, reset.ID, reset.PasswordHash, true)
	if _, err := f.svc.Login(ctx, "reset@x.com", "nope!"); !errors.Is(err, domain.ErrIncorrectCredential) {
		t.Fatalf("password must be checked before the reset flag, got %v", err)
	}
	if _, err := f.svc.Login(ctx, "reset@x.com", "abcde"); !errors.Is(err, domain.ErrPasswordResetRequired) {
		t.Fatalf("expected ErrPasswordResetRequired, got %v", err)
	}

	inactive := f.signup(t, "off@x.com", "2", "abcde")
	_ = f.users.SetActive(ctx, inactive.ID, false)
	if _, err := f.svc.Login(ctx, "off@x.com", "abcde"); !errors.Is(err, domain.ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestAuthService_Authenticate_Rejections(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Authenticate(ctx, ""); !errors.Is(err, domain.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, "not-a-token"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	f.signup(t, "a@x.com", "1", "abcde")
	res := f.login(t, "a@x.com", "abcde")

	f.advance(time.Hour + time.Second)
	if _, err := f.svc.Authenticate(ctx, res.Token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestAuthService_Authenticate_RevocationStoreError(t *testing.T) {
	f := newAuthFixture(t)
	f.signup(t, "a@x.com", "1", "abcde")
	res := f.login(t, "a@x.com", "abcde")

	f.revocations.err = errors.New("redis down")
	if _, err := f.svc.Authenticate(context.Background(), res.Token); err == nil {
		t.Fatalf("expected revocation lookup failure to reject the token")
	}
}

func TestAuthService_Authenticate_WithoutRevocationStore(t *testing.T) {
	f := newAuthFixture(t)
	f.svc.revocations = nil
	ctx := context.Background()

	f.signup(t, "a@x.com", "1", "abcde")
	res := f.login(t, "a@x.com", "abcde")

	f.advance(time.Minute)
	if err := f.svc.ResetPassword(ctx, "a@x.com", "abcde", "fghij"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, res.Token); err != nil {
		t.Fatalf("without a revocation store tokens live until expiry, got %v", err)
	}
}

func TestAuthService_ResetPassword_RevokesOldTokens(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.signup(t, "a@x.com", "1", "abcde")
	old := f.login(t, "a@x.com", "abcde")

	f.advance(time.Second)
	if err := f.svc.ResetPassword(ctx, "a@x.com", "abcde", "fghij"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	if _, err := f.svc.Authenticate(ctx, old.Token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected old token to be revoked, got %v", err)
	}

	fresh := f.login(t, "a@x.com", "fghij")
	if _, err := f.svc.Authenticate(ctx, fresh.Token); err != nil {
		t.Fatalf("expected token issued after reset to be valid, got %v", err)
	}
	if _, err := f.svc.Login(ctx, "a@x.com", "abcde"); !errors.Is(err, domain.ErrIncorrectCredential) {
		t.Fatalf("expected old password to be rejected, got %v", err)
	}
}

func TestAuthService_ResetPassword_Failures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signup(t, "a@x.com", "1", "abcde")

	if err := f.svc.ResetPassword(ctx, "a@x.com", "wrong", "fghij"); !errors.Is(err, domain.ErrIncorrectCredential) {
		t.Fatalf("expected ErrIncorrectCredential, got %v", err)
	}
	var verr *domain.ValidationError
	if err := f.svc.ResetPassword(ctx, "a@x.com", "abcde", "abc"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for short password, got %v", err)
	}
	if err := f.svc.ResetPassword(ctx, "a@x.com", "abcde", "abcde"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for unchanged password, got %v", err)
	}
	if err := f.svc.ResetPassword(ctx, "nobody@x.com", "abcde", "fghij"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_BootstrappedSuperAdminCanReset(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	boot := NewBootstrap(f.users, plainHasher{}, zerolog.Nop(), WithClock(func() time.Time { return f.now }))
	if err := boot.EnsureSuperAdmin(ctx, "initial", ""); err != nil {
		t.Fatalf("EnsureSuperAdmin: %v", err)
	}

	if _, err := f.svc.Login(ctx, domain.DefaultSuperAdminEmail, "initial"); !errors.Is(err, domain.ErrPasswordResetRequired) {
		t.Fatalf("expected ErrPasswordResetRequired, got %v", err)
	}
	if err := f.svc.ResetPassword(ctx, domain.DefaultSuperAdminEmail, "initial", "chosen"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	f.login(t, domain.DefaultSuperAdminEmail, "chosen")
}

func TestAuthService_AdminSetPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	admin := domain.Identity{UserID: 99, Email: "admin@x.com"}

	if _, err := f.svc.AdminSetPassword(ctx, admin, domain.DefaultSuperAdminEmail, "abcde"); !errors.Is(err, domain.ErrProtectedIdentity) {
		t.Fatalf("expected ErrProtectedIdentity, got %v", err)
	}
	if _, err := f.svc.AdminSetPassword(ctx, admin, "nobody@x.com", "abcde"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	target := f.signup(t, "a@x.com", "1", "abcde")
	old := f.login(t, "a@x.com", "abcde")
	f.advance(time.Second)

	id, err := f.svc.AdminSetPassword(ctx, admin, "a@x.com", "temp1")
	if err != nil {
		t.Fatalf("AdminSetPassword: %v", err)
	}
	if id != target.ID {
		t.Fatalf("expected target id %d, got %d", target.ID, id)
	}
	if _, err := f.svc.Login(ctx, "a@x.com", "temp1"); !errors.Is(err, domain.ErrPasswordResetRequired) {
		t.Fatalf("expected forced reset after admin password change, got %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, old.Token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected old token to be revoked, got %v", err)
	}
}

func TestAuthService_SetStatus(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	admin := domain.Identity{UserID: 99, Email: "admin@x.com"}

	boot := NewBootstrap(f.users, plainHasher{}, zerolog.Nop())
	if err := boot.EnsureSuperAdmin(ctx, "initial", ""); err != nil {
		t.Fatalf("EnsureSuperAdmin: %v", err)
	}
	super, _ := f.users.FindByEmail(ctx, domain.DefaultSuperAdminEmail)
	if err := f.svc.SetStatus(ctx, admin, super.ID, false); !errors.Is(err, domain.ErrProtectedIdentity) {
		t.Fatalf("expected ErrProtectedIdentity, got %v", err)
	}

	target := f.signup(t, "a@x.com", "1", "abcde")
	tok := f.login(t, "a@x.com", "abcde")
	f.advance(time.Second)

	if err := f.svc.SetStatus(ctx, admin, target.ID, false); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, tok.Token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected token of deactivated user to be revoked, got %v", err)
	}
	if _, err := f.svc.Login(ctx, "a@x.com", "abcde"); !errors.Is(err, domain.ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}

	if err := f.svc.SetStatus(ctx, admin, target.ID, true); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	f.login(t, "a@x.com", "abcde")

	if err := f.svc.SetStatus(ctx, admin, 12345, true); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_ListUsers_HidesSuperAdmin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if err := NewBootstrap(f.users, plainHasher{}, zerolog.Nop()).EnsureSuperAdmin(ctx, "initial", ""); err != nil {
		t.Fatalf("EnsureSuperAdmin: %v", err)
	}
	f.signup(t, "a@x.com", "1", "abcde")
	f.signup(t, "b@x.com", "2", "abcde")

	users, err := f.svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	for _, u := range users {
		if u.Email == domain.DefaultSuperAdminEmail {
			t.Fatalf("super admin must not be listed")
		}
	}
}

func TestAuthService_RevocationFailureDoesNotFailMutation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signup(t, "a@x.com", "1", "abcde")

	f.revocations.err = errors.New("redis down")
	if err := f.svc.ResetPassword(ctx, "a@x.com", "abcde", "fghij"); err != nil {
		t.Fatalf("expected reset to succeed despite revocation failure, got %v", err)
	}
	kinds := f.audit.kinds()
	if kinds[len(kinds)-1] != domain.AuditPasswordReset {
		t.Fatalf("expected password reset audit event, got %v", kinds)
	}
}

func TestAuthService_PasswordOverBcryptLimit(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.svc.hasher = security.NewBcryptHasher(4)
	admin := domain.Identity{UserID: 99, Email: "admin@x.com"}

	// 40 runes, 80 bytes: passes the rune minimum but bcrypt cannot hash it.
	long := strings.Repeat("é", 40)
	f.signup(t, "a@x.com", "1", "abcde")

	cases := map[string]func() error{
		"signup": func() error {
			_, err := f.svc.Signup(ctx, ports.SignupInput{Email: "b@x.com", Phone: "2", Password: long})
			return err
		},
		"reset": func() error {
			return f.svc.ResetPassword(ctx, "a@x.com", "abcde", long)
		},
		"admin set": func() error {
			_, err := f.svc.AdminSetPassword(ctx, admin, "a@x.com", long)
			return err
		},
	}
	for name, call := range cases {
		t.Run(name, func(t *testing.T) {
			var verr *domain.ValidationError
			if err := call(); !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}

	if _, err := f.svc.Signup(ctx, ports.SignupInput{Email: "c@x.com", Phone: "3", Password: strings.Repeat("a", MaxPasswordBytes)}); err != nil {
		t.Fatalf("expected a %d byte password to be accepted, got %v", MaxPasswordBytes, err)
	}
}

func TestAuthService_RevocationWithinSameSecond(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	admin := domain.Identity{UserID: 99, Email: "admin@x.com"}

	target := f.signup(t, "a@x.com", "1", "abcde")
	old := f.login(t, "a@x.com", "abcde")

	f.advance(250 * time.Millisecond)
	if err := f.svc.SetStatus(ctx, admin, target.ID, false); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, old.Token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected token minted earlier in the same second to be revoked, got %v", err)
	}
}
