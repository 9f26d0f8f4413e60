package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/higher/admin-access/internal/core/domain"
)

type stubUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
	grants *stubGrantRepo
}

func newStubUserRepo(grants *stubGrantRepo) *stubUserRepo {
	return &stubUserRepo{users: make(map[int64]*domain.User), grants: grants}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User, operations []string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, &domain.ConflictError{Field: "email"}
		}
		if u.Phone == user.Phone {
			return nil, &domain.ConflictError{Field: "phone"}
		}
	}
	r.nextID++
	created := cloneUser(user)
	created.ID = r.nextID
	r.users[created.ID] = cloneUser(created)
	if r.grants != nil {
		r.grants.set(created.ID, operations)
	}
	return created, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) List(_ context.Context, excludeEmail string) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		if u.Email != excludeEmail {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id int64, hash string, mustReset bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.MustResetPassword = mustReset
	return nil
}

func (r *stubUserRepo) SetActive(_ context.Context, id int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Active = active
	return nil
}

type stubGrantRepo struct {
	mu         sync.Mutex
	grants     map[int64][]string
	calls      int
	replaceErr error
	err        error
}

func newStubGrantRepo() *stubGrantRepo {
	return &stubGrantRepo{grants: make(map[int64][]string)}
}

func (r *stubGrantRepo) set(userID int64, ops []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants[userID] = append([]string(nil), ops...)
}

func (r *stubGrantRepo) Has(_ context.Context, userID int64, operation string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return false, r.err
	}
	for _, op := range r.grants[userID] {
		if op == operation {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubGrantRepo) Granted(_ context.Context, userID int64, candidates []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	held := make(map[string]bool)
	for _, op := range r.grants[userID] {
		held[op] = true
	}
	var out []string
	for _, c := range candidates {
		if held[c] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *stubGrantRepo) List(_ context.Context, userID int64) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	out := append([]string(nil), r.grants[userID]...)
	sort.Strings(out)
	return out, nil
}

func (r *stubGrantRepo) Replace(_ context.Context, userID int64, operations []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.replaceErr != nil {
		return r.replaceErr
	}
	r.grants[userID] = append([]string(nil), operations...)
	return nil
}

// plainHasher keeps tests fast; bcrypt itself is covered in the security package.
type plainHasher struct{}

func (plainHasher) Hash(plaintext string) (string, error) { return "hashed:" + plaintext, nil }

func (plainHasher) Verify(plaintext, digest string) bool {
	return strings.HasPrefix(digest, "hashed:") && digest[len("hashed:"):] == plaintext
}

type stubRevocations struct {
	mu      sync.Mutex
	cutoffs map[int64]time.Time
	err     error
}

func newStubRevocations() *stubRevocations {
	return &stubRevocations{cutoffs: make(map[int64]time.Time)}
}

func (s *stubRevocations) RevokeBefore(_ context.Context, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.cutoffs[userID] = at
	return nil
}

func (s *stubRevocations) IsRevoked(_ context.Context, userID int64, issuedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	cutoff, ok := s.cutoffs[userID]
	if !ok {
		return false, nil
	}
	return issuedAt.UnixMilli() < cutoff.UnixMilli(), nil
}

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (a *recordingAudit) Record(_ context.Context, e domain.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *recordingAudit) kinds() []domain.AuditKind {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.AuditKind, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Kind)
	}
	return out
}
