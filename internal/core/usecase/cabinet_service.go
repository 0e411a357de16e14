package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
	"github.com/atvirokodosprendimai/cabinetd/internal/core/ports"
)

// CabinetServiceConfig carries the ownership-transfer policy. By default the
// previous owner keeps their role and grants and only loses the owner flag;
// DemoteFormerOwner instead resets them to the operator defaults.
type CabinetServiceConfig struct {
	DemoteFormerOwner bool
}

// CabinetService is the transactional orchestrator for cabinet lifecycle:
// create, invite, remove, transfer ownership, delete. Cabinet and membership
// rows are written only here (and by the user-deletion cascade, which reuses
// the same delete path), always inside a single transaction together with
// the audit emission.
type CabinetService struct {
	tx    ports.Transactor
	store ports.Store
	audit ports.AuditLogger
	cache ports.PermissionCache
	cfg   CabinetServiceConfig
	log   *logrus.Logger
}

func NewCabinetService(tx ports.Transactor, store ports.Store, audit ports.AuditLogger, cache ports.PermissionCache, cfg CabinetServiceConfig, log *logrus.Logger) *CabinetService {
	return &CabinetService{tx: tx, store: store, audit: audit, cache: cache, cfg: cfg, log: log}
}

// Create makes a new cabinet owned by the actor. The owner membership gets
// the admin role, the owner flag, and the entire active permission catalog.
func (s *CabinetService) Create(ctx context.Context, actor domain.Actor, name, description string) (domain.Cabinet, error) {
	if strings.TrimSpace(name) == "" || actor.System() {
		return domain.Cabinet{}, domain.ErrInvalidInput
	}

	var cabinet domain.Cabinet
	err := s.tx.InTx(ctx, func(st ports.Store) error {
		owner, err := st.Users().FindByID(ctx, actor.UserID)
		if err != nil {
			return err
		}

		cabinet, err = st.Cabinets().Create(ctx, domain.Cabinet{
			ID:          uuid.NewString(),
			Name:        name,
			Description: description,
			OwnerID:     owner.ID,
		})
		if err != nil {
			return err
		}

		member, err := st.Members().Create(ctx, domain.Membership{
			ID:        uuid.NewString(),
			CabinetID: cabinet.ID,
			UserID:    owner.ID,
			Role:      domain.RoleAdmin,
			IsOwner:   true,
		})
		if err != nil {
			return err
		}

		if err := s.grantByRole(ctx, st, member.ID, domain.RoleAdmin); err != nil {
			return err
		}

		return s.audit.Log(ctx, st, domain.AuditEntry{
			ActorID:     actor.UserRef(),
			CabinetID:   &cabinet.ID,
			SubjectType: domain.SubjectCabinet,
			SubjectID:   cabinet.ID,
			Event:       domain.EventCabinetCreated,
			Description: "Cabinet created",
			IPAddress:   actor.IPAddress,
			UserAgent:   actor.UserAgent,
			Metadata:    map[string]any{"cabinet_name": cabinet.Name},
		})
	})
	if err != nil {
		return domain.Cabinet{}, err
	}

	s.log.WithFields(logrus.Fields{"cabinet_id": cabinet.ID, "owner_id": actor.UserID}).
		Info("cabinet created")
	return cabinet, nil
}

// Invite resolves the target by phone and adds a membership with the default
// permission set for the requested role.
func (s *CabinetService) Invite(ctx context.Context, actor domain.Actor, cabinetID, phone, role string) (domain.Membership, error) {
	if strings.TrimSpace(phone) == "" {
		return domain.Membership{}, domain.ErrInvalidInput
	}
	if role == "" {
		role = domain.RoleOperator
	}

	var member domain.Membership
	err := s.tx.InTx(ctx, func(st ports.Store) error {
		cabinet, err := st.Cabinets().Get(ctx, cabinetID)
		if err != nil {
			return err
		}

		target, err := st.Users().FindByPhone(ctx, phone)
		if err != nil {
			return err
		}

		_, err = st.Members().Find(ctx, cabinet.ID, target.ID)
		if err == nil {
			return domain.ErrAlreadyMember
		}
		if !errors.Is(err, domain.ErrMemberNotFound) {
			return err
		}

		member, err = st.Members().Create(ctx, domain.Membership{
			ID:        uuid.NewString(),
			CabinetID: cabinet.ID,
			UserID:    target.ID,
			Role:      role,
		})
		if err != nil {
			return err
		}

		if err := s.grantByRole(ctx, st, member.ID, role); err != nil {
			return err
		}

		return s.audit.Log(ctx, st, domain.AuditEntry{
			ActorID:     actor.UserRef(),
			CabinetID:   &cabinet.ID,
			SubjectType: domain.SubjectMembership,
			SubjectID:   member.ID,
			Event:       domain.EventUserInvited,
			Description: "User invited to cabinet",
			IPAddress:   actor.IPAddress,
			UserAgent:   actor.UserAgent,
			Metadata: map[string]any{
				"invited_user_id":    target.ID,
				"invited_user_phone": target.Phone,
				"role":               role,
			},
		})
	})
	if err != nil {
		return domain.Membership{}, err
	}
	return member, nil
}

// Remove deletes a membership and its grants. The current owner can never be
// removed; ownership has to be transferred first.
func (s *CabinetService) Remove(ctx context.Context, actor domain.Actor, cabinetID, targetUserID string) error {
	return s.tx.InTx(ctx, func(st ports.Store) error {
		cabinet, err := st.Cabinets().Get(ctx, cabinetID)
		if err != nil {
			return err
		}

		member, err := st.Members().Find(ctx, cabinet.ID, targetUserID)
		if errors.Is(err, domain.ErrMemberNotFound) {
			return domain.ErrNotMember
		}
		if err != nil {
			return err
		}
		if member.IsOwner {
			return domain.ErrCannotRemoveOwner
		}

		target, err := st.Users().FindByID(ctx, targetUserID)
		if err != nil {
			return err
		}

		if err := st.Members().Delete(ctx, member.ID); err != nil {
			return err
		}

		err = s.audit.Log(ctx, st, domain.AuditEntry{
			ActorID:     actor.UserRef(),
			CabinetID:   &cabinet.ID,
			SubjectType: domain.SubjectMembership,
			SubjectID:   member.ID,
			Event:       domain.EventUserRemoved,
			Description: "User removed from cabinet",
			IPAddress:   actor.IPAddress,
			UserAgent:   actor.UserAgent,
			Metadata: map[string]any{
				"removed_user_id":    target.ID,
				"removed_user_phone": target.Phone,
			},
		})
		if err != nil {
			return err
		}

		s.invalidate(ctx, targetUserID, cabinet.ID)
		return nil
	})
}

// TransferOwnership atomically moves the owner flag to an existing member,
// promotes them to admin with the full catalog, and updates the cabinet's
// owner reference.
func (s *CabinetService) TransferOwnership(ctx context.Context, actor domain.Actor, cabinetID, newOwnerPhone string) (domain.Membership, error) {
	var member domain.Membership
	err := s.tx.InTx(ctx, func(st ports.Store) error {
		cabinet, err := st.Cabinets().Get(ctx, cabinetID)
		if err != nil {
			return err
		}
		if !actor.System() && cabinet.OwnerID != actor.UserID {
			return domain.ErrNotOwner
		}

		newOwner, err := st.Users().FindByPhone(ctx, newOwnerPhone)
		if err != nil {
			return err
		}
		if newOwner.ID == cabinet.OwnerID {
			return domain.ErrInvalidInput
		}

		member, err = st.Members().Find(ctx, cabinet.ID, newOwner.ID)
		if errors.Is(err, domain.ErrMemberNotFound) {
			return domain.ErrNotMember
		}
		if err != nil {
			return err
		}

		previous, err := st.Members().Find(ctx, cabinet.ID, cabinet.OwnerID)
		if err != nil {
			return fmt.Errorf("resolve current owner membership: %w", err)
		}

		previousOwnerID := cabinet.OwnerID
		cabinet.OwnerID = newOwner.ID
		if err := st.Cabinets().Update(ctx, cabinet); err != nil {
			return err
		}

		if err := st.Members().SetOwnerFlag(ctx, previous.ID, false); err != nil {
			return err
		}
		if s.cfg.DemoteFormerOwner {
			if err := st.Members().SetRole(ctx, previous.ID, domain.RoleOperator); err != nil {
				return err
			}
			if err := s.syncByRole(ctx, st, previous.ID, domain.RoleOperator); err != nil {
				return err
			}
		}

		if err := st.Members().SetOwnerFlag(ctx, member.ID, true); err != nil {
			return err
		}
		if err := st.Members().SetRole(ctx, member.ID, domain.RoleAdmin); err != nil {
			return err
		}
		if err := s.syncByRole(ctx, st, member.ID, domain.RoleAdmin); err != nil {
			return err
		}
		member.IsOwner = true
		member.Role = domain.RoleAdmin

		err = s.audit.Log(ctx, st, domain.AuditEntry{
			ActorID:     actor.UserRef(),
			CabinetID:   &cabinet.ID,
			SubjectType: domain.SubjectCabinet,
			SubjectID:   cabinet.ID,
			Event:       domain.EventOwnershipTransferred,
			Description: "Cabinet ownership transferred",
			IPAddress:   actor.IPAddress,
			UserAgent:   actor.UserAgent,
			Metadata: map[string]any{
				"previous_owner_id": previousOwnerID,
				"new_owner_id":      newOwner.ID,
				"new_owner_phone":   newOwner.Phone,
			},
		})
		if err != nil {
			return err
		}

		s.invalidate(ctx, previousOwnerID, cabinet.ID)
		s.invalidate(ctx, newOwner.ID, cabinet.ID)
		return nil
	})
	if err != nil {
		return domain.Membership{}, err
	}
	return member, nil
}

// Update changes the cabinet's name and description. Owner only.
func (s *CabinetService) Update(ctx context.Context, actor domain.Actor, cabinetID, name, description string) (domain.Cabinet, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Cabinet{}, domain.ErrInvalidInput
	}

	var cabinet domain.Cabinet
	err := s.tx.InTx(ctx, func(st ports.Store) error {
		var err error
		cabinet, err = st.Cabinets().Get(ctx, cabinetID)
		if err != nil {
			return err
		}
		if !actor.System() && cabinet.OwnerID != actor.UserID {
			return domain.ErrNotOwner
		}

		cabinet.Name = name
		cabinet.Description = description
		if err := st.Cabinets().Update(ctx, cabinet); err != nil {
			return err
		}

		return s.audit.Log(ctx, st, domain.AuditEntry{
			ActorID:     actor.UserRef(),
			CabinetID:   &cabinet.ID,
			SubjectType: domain.SubjectCabinet,
			SubjectID:   cabinet.ID,
			Event:       domain.EventCabinetUpdated,
			Description: "Cabinet updated",
			IPAddress:   actor.IPAddress,
			UserAgent:   actor.UserAgent,
			Metadata:    map[string]any{"cabinet_name": name},
		})
	})
	if err != nil {
		return domain.Cabinet{}, err
	}
	return cabinet, nil
}

// Delete removes the cabinet with all memberships and grants. Owner only;
// the user-deletion cascade calls the shared path with a system actor.
func (s *CabinetService) Delete(ctx context.Context, actor domain.Actor, cabinetID string) error {
	return s.tx.InTx(ctx, func(st ports.Store) error {
		cabinet, err := st.Cabinets().Get(ctx, cabinetID)
		if err != nil {
			return err
		}
		if !actor.System() && cabinet.OwnerID != actor.UserID {
			return domain.ErrNotOwner
		}
		return deleteCabinet(ctx, st, s.audit, actor, cabinet)
	})
}

func (s *CabinetService) Get(ctx context.Context, cabinetID string) (domain.Cabinet, error) {
	return s.store.Cabinets().Get(ctx, cabinetID)
}

func (s *CabinetService) ListForUser(ctx context.Context, userID string) ([]domain.Cabinet, error) {
	return s.store.Cabinets().ListForUser(ctx, userID)
}

func (s *CabinetService) Members(ctx context.Context, cabinetID string) ([]domain.Membership, error) {
	if _, err := s.store.Cabinets().Get(ctx, cabinetID); err != nil {
		return nil, err
	}
	return s.store.Members().ListForCabinet(ctx, cabinetID)
}

// grantByRole attaches the role's default permission snapshot: the whole
// active catalog for admins, otherwise the role's category subset.
func (s *CabinetService) grantByRole(ctx context.Context, st ports.Store, memberID, role string) error {
	ids, err := rolePermissionIDs(ctx, st, role)
	if err != nil {
		return err
	}
	return st.Members().Grant(ctx, memberID, ids)
}

func (s *CabinetService) syncByRole(ctx context.Context, st ports.Store, memberID, role string) error {
	ids, err := rolePermissionIDs(ctx, st, role)
	if err != nil {
		return err
	}
	return st.Members().Sync(ctx, memberID, ids)
}

func rolePermissionIDs(ctx context.Context, st ports.Store, role string) ([]string, error) {
	var (
		permissions []domain.Permission
		err         error
	)
	if categories := domain.DefaultCategories(role); categories == nil {
		permissions, err = st.Catalog().List(ctx)
	} else {
		permissions, err = st.Catalog().ByCategories(ctx, categories)
	}
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(permissions))
	for _, p := range permissions {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// deleteCabinet is the single delete path shared by owner-initiated deletion
// and the user cascade. Name and description are captured before the row is
// gone so the audit entry still carries them.
func deleteCabinet(ctx context.Context, st ports.Store, audit ports.AuditLogger, actor domain.Actor, cabinet domain.Cabinet) error {
	name, description := cabinet.Name, cabinet.Description

	if err := st.Cabinets().Delete(ctx, cabinet.ID); err != nil {
		return err
	}

	return audit.Log(ctx, st, domain.AuditEntry{
		ActorID:     actor.UserRef(),
		CabinetID:   &cabinet.ID,
		SubjectType: domain.SubjectCabinet,
		SubjectID:   cabinet.ID,
		Event:       domain.EventCabinetDeleted,
		Description: "Cabinet deleted",
		IPAddress:   actor.IPAddress,
		UserAgent:   actor.UserAgent,
		Metadata: map[string]any{
			"cabinet_name":        name,
			"cabinet_description": description,
		},
	})
}

func (s *CabinetService) invalidate(ctx context.Context, userID, cabinetID string) {
	if err := s.cache.Invalidate(ctx, userID, cabinetID); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id":    userID,
			"cabinet_id": cabinetID,
		}).Warn("permission cache invalidation failed")
	}
}
