package ports

import (
	"context"
	"time"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
)

// Store bundles the repositories of one storage backend. Inside InTx every
// repository is bound to the same transaction, so a lifecycle operation
// either commits all of its row changes and audit emission or none of them.
type Store interface {
	Cabinets() CabinetRepository
	Members() MemberRepository
	Catalog() PermissionCatalog
	Users() UserRepository
	Audit() AuditRepository
	Queue() AuditQueueRepository
	Messages() MessageRepository
}

type Transactor interface {
	InTx(ctx context.Context, fn func(s Store) error) error
}

type CabinetRepository interface {
	Create(ctx context.Context, cabinet domain.Cabinet) (domain.Cabinet, error)
	Get(ctx context.Context, id string) (domain.Cabinet, error)
	Update(ctx context.Context, cabinet domain.Cabinet) error
	// Delete removes the cabinet row; memberships and their grants go with
	// it via foreign-key cascade.
	Delete(ctx context.Context, id string) error
	ListOwnedBy(ctx context.Context, userID string) ([]domain.Cabinet, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Cabinet, error)
}

type MemberRepository interface {
	Create(ctx context.Context, m domain.Membership) (domain.Membership, error)
	Find(ctx context.Context, cabinetID, userID string) (domain.Membership, error)
	ListForCabinet(ctx context.Context, cabinetID string) ([]domain.Membership, error)
	SetOwnerFlag(ctx context.Context, memberID string, isOwner bool) error
	SetRole(ctx context.Context, memberID, role string) error
	Delete(ctx context.Context, memberID string) error
	DeleteForUser(ctx context.Context, userID string) error

	// Permission grants attached to one membership. Grant and Revoke are
	// idempotent; Sync replaces the whole set.
	Grant(ctx context.Context, memberID string, permissionIDs []string) error
	Revoke(ctx context.Context, memberID string, permissionIDs []string) error
	Sync(ctx context.Context, memberID string, permissionIDs []string) error
	PermissionNames(ctx context.Context, memberID string) ([]string, error)
	HasPermission(ctx context.Context, memberID, name string) (bool, error)
}

type PermissionCatalog interface {
	List(ctx context.Context) ([]domain.Permission, error)
	FindByIDs(ctx context.Context, ids []string) ([]domain.Permission, error)
	ByCategories(ctx context.Context, categories []string) ([]domain.Permission, error)
	Upsert(ctx context.Context, p domain.Permission) error
}

type UserRepository interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
	FindByID(ctx context.Context, id string) (domain.User, error)
	FindByPhone(ctx context.Context, phone string) (domain.User, error)
	Delete(ctx context.Context, id string) error
}

type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	Query(ctx context.Context, filter domain.AuditFilter, limit, offset int) (domain.AuditPage, error)
	Statistics(ctx context.Context, filter domain.AuditFilter) (domain.AuditStats, error)
	Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error)
	DeleteForUser(ctx context.Context, userID string) error
}

type AuditQueueRepository interface {
	Enqueue(ctx context.Context, payload []byte) error
	FetchPending(ctx context.Context, limit int) ([]domain.QueuedAudit, error)
	MarkDelivered(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, attempts int, nextAttempt time.Time, lastError string) error
	MarkDead(ctx context.Context, id int64, attempts int, lastError string) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg domain.Message, recipientIDs []string) (domain.Message, error)
	ListForUser(ctx context.Context, userID string) ([]domain.UserMessage, error)
	MarkRead(ctx context.Context, messageID, userID string, at time.Time) error
	DeleteForUser(ctx context.Context, userID string) error
}
