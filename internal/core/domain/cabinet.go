package domain

import (
	"strings"
	"time"
)

const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleOperator = "operator"
)

type Cabinet struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c Cabinet) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrInvalidInput
	}
	if c.OwnerID == "" {
		return ErrInvalidInput
	}
	return nil
}

// Membership associates a user with a cabinet. Exactly one membership per
// cabinet carries IsOwner=true, and its UserID equals Cabinet.OwnerID.
type Membership struct {
	ID        string
	CabinetID string
	UserID    string
	Role      string
	IsOwner   bool
	JoinedAt  time.Time
}

// DefaultCategories returns the permission categories granted to a freshly
// invited member of the given role. A nil result means the whole catalog.
func DefaultCategories(role string) []string {
	switch role {
	case RoleAdmin:
		return nil
	case RoleManager:
		return []string{"machines", "reports", "users"}
	case RoleOperator:
		return []string{"machines"}
	default:
		return []string{"machines"}
	}
}
