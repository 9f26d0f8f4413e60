package domain

import "time"

// AuditKind classifies an entry in the access audit trail.
type AuditKind string

const (
	AuditSignup          AuditKind = "signup"
	AuditGrantsReplaced  AuditKind = "grants_replaced"
	AuditPasswordChanged AuditKind = "password_changed"
	AuditPasswordReset   AuditKind = "password_reset"
	AuditStatusChanged   AuditKind = "status_changed"
)

// AuditEvent records an administrative mutation of credentials or grants.
// ActorID is zero for unauthenticated actions such as self-signup.
type AuditEvent struct {
	ID         string
	Kind       AuditKind
	ActorID    int64
	TargetID   int64
	Operations []string
	Detail     string
	At         time.Time
}
