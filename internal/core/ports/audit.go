package ports

import (
	"context"

	"github.com/higher/admin-access/internal/core/domain"
)

// AuditRecorder accepts audit events. Implementations must not block the
// caller on slow storage.
type AuditRecorder interface {
	Record(ctx context.Context, event domain.AuditEvent)
}

// AuditRepository writes audit events to durable storage.
type AuditRepository interface {
	Insert(ctx context.Context, event domain.AuditEvent) error
}
