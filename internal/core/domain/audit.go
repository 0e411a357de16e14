package domain

import "time"

const (
	EventCabinetCreated       = "cabinet.created"
	EventCabinetUpdated       = "cabinet.updated"
	EventCabinetDeleted       = "cabinet.deleted"
	EventUserInvited          = "user.invited"
	EventUserRemoved          = "user.removed"
	EventUserDeleted          = "user.deleted"
	EventOwnershipTransferred = "ownership.transferred"
	EventPermissionAssigned   = "permission.assigned"
	EventPermissionRevoked    = "permission.revoked"
)

const (
	SubjectCabinet    = "cabinet"
	SubjectMembership = "membership"
	SubjectUser       = "user"
	SubjectPermission = "permission"
)

// AuditEntry is one immutable record of a privileged mutation. ActorID is nil
// for system-initiated changes; CabinetID is nil for entries not scoped to a
// cabinet. The subject is a tagged reference, resolved only when logs are
// displayed, never for writing them.
type AuditEntry struct {
	ID          int64
	ActorID     *string
	CabinetID   *string
	SubjectType string
	SubjectID   string
	Event       string
	Description string
	IPAddress   string
	UserAgent   string
	Metadata    map[string]any
	CreatedAt   time.Time
}

func (e AuditEntry) Validate() error {
	if e.Event == "" {
		return ErrInvalidInput
	}
	if e.SubjectType == "" || e.SubjectID == "" {
		return ErrInvalidInput
	}
	return nil
}

type AuditFilter struct {
	UserID      string
	CabinetID   string
	Event       string
	SubjectType string
	SubjectID   string
	From        time.Time
	To          time.Time
}

type AuditPage struct {
	Entries []AuditEntry
	Total   int64
	Limit   int
	Offset  int
}

type AuditStats struct {
	Total            int64
	DistinctUsers    int64
	DistinctCabinets int64
	EventCounts      map[string]int64
}

// QueuedAudit is a pending asynchronous audit delivery. The payload commits
// inside the same transaction as the mutation it describes; a background
// dispatcher later moves it into the audit log with bounded retries.
type QueuedAudit struct {
	ID            int64
	Payload       []byte
	Status        string
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	DeliveredAt   *time.Time
}

const (
	QueueStatusPending   = "pending"
	QueueStatusDelivered = "delivered"
	QueueStatusDead      = "dead"
)
