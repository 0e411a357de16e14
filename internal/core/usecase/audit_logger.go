package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
	"github.com/atvirokodosprendimai/cabinetd/internal/core/ports"
)

// DirectAuditLogger writes the audit row inside the caller's transaction.
// A write failure aborts the whole operation, never leaving a mutation
// without its audit entry or the other way around.
type DirectAuditLogger struct{}

func NewDirectAuditLogger() DirectAuditLogger { return DirectAuditLogger{} }

func (DirectAuditLogger) Log(ctx context.Context, s ports.Store, entry domain.AuditEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	return s.Audit().Append(ctx, entry)
}

// QueuedAuditLogger defers the audit write to the dispatcher. The queue row
// commits inside the caller's transaction, so an entry exists exactly when
// its mutation committed; delivery into the audit log happens asynchronously
// with bounded retries.
type QueuedAuditLogger struct{}

func NewQueuedAuditLogger() QueuedAuditLogger { return QueuedAuditLogger{} }

func (QueuedAuditLogger) Log(ctx context.Context, s ports.Store, entry domain.AuditEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	return s.Queue().Enqueue(ctx, payload)
}

var (
	_ ports.AuditLogger = DirectAuditLogger{}
	_ ports.AuditLogger = QueuedAuditLogger{}
)
