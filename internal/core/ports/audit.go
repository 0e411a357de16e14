package ports

import (
	"context"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
)

// AuditLogger appends one audit entry through the transaction-bound store.
// Implementations either write the audit row directly (a failure aborts the
// enclosing transaction) or enqueue it for asynchronous delivery; the queue
// row still commits or rolls back with the mutation, so no entry ever exists
// without its completed mutation.
type AuditLogger interface {
	Log(ctx context.Context, s Store, entry domain.AuditEntry) error
}
