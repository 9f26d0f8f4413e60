package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/higher/admin-access/internal/core/domain"
)

const auditCollection = "access_audit"

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	coll *mongo.Collection
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

type auditDocument struct {
	ID         string    `bson:"_id,omitempty"`
	Kind       string    `bson:"kind"`
	ActorID    int64     `bson:"actor_id,omitempty"`
	TargetID   int64     `bson:"target_id"`
	Operations []string  `bson:"operations,omitempty"`
	Detail     string    `bson:"detail,omitempty"`
	At         time.Time `bson:"at"`
	RecordedAt time.Time `bson:"recorded_at"`
}

func toAuditDocument(e domain.AuditEvent, recordedAt time.Time) auditDocument {
	return auditDocument{
		ID:         e.ID,
		Kind:       string(e.Kind),
		ActorID:    e.ActorID,
		TargetID:   e.TargetID,
		Operations: e.Operations,
		Detail:     e.Detail,
		At:         e.At.UTC(),
		RecordedAt: recordedAt.UTC(),
	}
}

// Insert appends an event to the access_audit collection. Events carrying an
// ID are written at most once; a duplicate key means it is already stored.
func (r *AuditRepository) Insert(ctx context.Context, event domain.AuditEvent) error {
	if _, err := r.coll.InsertOne(ctx, toAuditDocument(event, time.Now())); err != nil {
		if event.ID != "" && mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// EnsureIndexes creates the lookup index on (target_id, at).
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "target_id", Value: 1}, {Key: "at", Value: -1}},
		Options: options.Index().SetName("target_at"),
	})
	if err != nil {
		return fmt.Errorf("create audit index: %w", err)
	}
	return nil
}
