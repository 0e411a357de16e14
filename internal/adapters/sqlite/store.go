package sqlite

import (
	"context"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/cabinetd/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/cabinetd/internal/core/ports"
)

// Store implements ports.Store over a single gorm handle, which is either
// the reader connection (for queries outside a transaction) or a writer
// transaction inside InTx.
type Store struct {
	db *gorm.DB
}

var _ ports.Store = (*Store)(nil)

func (s *Store) Cabinets() ports.CabinetRepository { return &CabinetRepository{db: s.db} }
func (s *Store) Members() ports.MemberRepository { return &MemberRepository{db: s.db} }
func (s *Store) Catalog() ports.PermissionCatalog { return &PermissionRepository{db: s.db} }
func (s *Store) Users() ports.UserRepository { return &UserRepository{db: s.db} }
func (s *Store) Audit() ports.AuditRepository { return &AuditRepository{db: s.db} }
func (s *Store) Queue() ports.AuditQueueRepository { return &AuditQueueRepository{db: s.db} }
func (s *Store) Messages() ports.MessageRepository { return &MessageRepository{db: s.db} }

// Root is the process-wide entry point: ports.Store methods serve reads from
// the reader handle, InTx runs the callback against a writer transaction.
type Root struct {
	db    *gormsqlite.DB
	reads *Store
}

var (
	_ ports.Store      = (*Root)(nil)
	_ ports.Transactor = (*Root)(nil)
)

func NewStore(db *gormsqlite.DB) *Root {
	return &Root{db: db, reads: &Store{db: db.R}}
}

func (r *Root) InTx(ctx context.Context, fn func(s ports.Store) error) error {
	return r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return fn(&Store{db: tx.DB})
	})
}

func (r *Root) Cabinets() ports.CabinetRepository { return r.reads.Cabinets() }
func (r *Root) Members() ports.MemberRepository { return r.reads.Members() }
func (r *Root) Catalog() ports.PermissionCatalog { return r.reads.Catalog() }
func (r *Root) Users() ports.UserRepository { return r.reads.Users() }
func (r *Root) Audit() ports.AuditRepository { return r.reads.Audit() }
func (r *Root) Queue() ports.AuditQueueRepository { return r.reads.Queue() }
func (r *Root) Messages() ports.MessageRepository { return r.reads.Messages() }
