package shared

import (
	"context"

	"github.com/google/uuid"
)

// AuditAction describes the kind of mutation being recorded
type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionDelete AuditAction = "DELETE"
)

// AuditEntry captures one logical mutation for the write-only audit sink.
// Before/After hold the interesting fields of the entity around the change;
// either may be nil (creation has no Before, deletion no After).
type AuditEntry struct {
	Actor      Actor
	EntityType string
	EntityID   uuid.UUID
	Action     AuditAction
	Before     map[string]interface{}
	After      map[string]interface{}
}

// AuditLogger is the write-only audit sink. Implementations are expected to
// participate in the caller's transaction where one is active so an audit
// record never outlives the mutation it describes.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// NopAuditLogger discards all entries
type NopAuditLogger struct{}

// Record implements AuditLogger
func (NopAuditLogger) Record(context.Context, AuditEntry) error { return nil }
