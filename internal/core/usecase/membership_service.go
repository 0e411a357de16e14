package usecase

import (
	"context"
	"errors"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
	"github.com/atvirokodosprendimai/cabinetd/internal/core/ports"
)

// MembershipService answers permission questions and mutates per-member
// grants. The cache is an optimization over the store only; ownership and
// uniqueness checks always go to the store.
type MembershipService struct {
	tx    ports.Transactor
	store ports.Store
	audit ports.AuditLogger
	cache ports.PermissionCache
	log   *logrus.Logger
}

func NewMembershipService(tx ports.Transactor, store ports.Store, audit ports.AuditLogger, cache ports.PermissionCache, log *logrus.Logger) *MembershipService {
	return &MembershipService{tx: tx, store: store, audit: audit, cache: cache, log: log}
}

// HasPermission reports whether the user holds an active permission with the
// given name in the cabinet. Non-members simply have no permissions.
func (s *MembershipService) HasPermission(ctx context.Context, userID, cabinetID, name string) (bool, error) {
	if names, ok, err := s.cache.Get(ctx, userID, cabinetID); err != nil {
		s.log.WithError(err).Warn("permission cache read failed")
	} else if ok {
		return slices.Contains(names, name), nil
	}

	member, err := s.store.Members().Find(ctx, cabinetID, userID)
	if errors.Is(err, domain.ErrMemberNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	names, err := s.store.Members().PermissionNames(ctx, member.ID)
	if err != nil {
		return false, err
	}
	if err := s.cache.Set(ctx, userID, cabinetID, names); err != nil {
		s.log.WithError(err).Warn("permission cache write failed")
	}
	return slices.Contains(names, name), nil
}

// PermissionNames returns the user's effective permission set in the cabinet:
// granted permissions intersected with the currently active catalog.
func (s *MembershipService) PermissionNames(ctx context.Context, userID, cabinetID string) ([]string, error) {
	member, err := s.store.Members().Find(ctx, cabinetID, userID)
	if errors.Is(err, domain.ErrMemberNotFound) {
		return nil, domain.ErrNotMember
	}
	if err != nil {
		return nil, err
	}
	return s.store.Members().PermissionNames(ctx, member.ID)
}

func (s *MembershipService) IsOwner(ctx context.Context, cabinetID, userID string) (bool, error) {
	member, err := s.store.Members().Find(ctx, cabinetID, userID)
	if errors.Is(err, domain.ErrMemberNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return member.IsOwner, nil
}

// Grant attaches permissions to a membership. Unknown or inactive permission
// ids are skipped, and granting an already-granted permission is a no-op.
func (s *MembershipService) Grant(ctx context.Context, actor domain.Actor, cabinetID, userID string, permissionIDs []string) error {
	return s.tx.InTx(ctx, func(st ports.Store) error {
		member, err := st.Members().Find(ctx, cabinetID, userID)
		if errors.Is(err, domain.ErrMemberNotFound) {
			return domain.ErrNotMember
		}
		if err != nil {
			return err
		}

		valid, err := st.Catalog().FindByIDs(ctx, permissionIDs)
		if err != nil {
			return err
		}
		if len(valid) == 0 {
			return nil
		}
		ids := make([]string, 0, len(valid))
		names := make([]string, 0, len(valid))
		for _, p := range valid {
			ids = append(ids, p.ID)
			names = append(names, p.Name)
		}
		if err := st.Members().Grant(ctx, member.ID, ids); err != nil {
			return err
		}

		err = s.audit.Log(ctx, st, domain.AuditEntry{
			ActorID:     actor.UserRef(),
			CabinetID:   &cabinetID,
			SubjectType: domain.SubjectMembership,
			SubjectID:   member.ID,
			Event:       domain.EventPermissionAssigned,
			Description: "Permissions assigned to cabinet member",
			IPAddress:   actor.IPAddress,
			UserAgent:   actor.UserAgent,
			Metadata: map[string]any{
				"user_id":     userID,
				"permissions": names,
			},
		})
		if err != nil {
			return err
		}

		s.invalidate(ctx, userID, cabinetID)
		return nil
	})
}

// Revoke detaches permissions from a membership; revoking an ungranted
// permission is a no-op.
func (s *MembershipService) Revoke(ctx context.Context, actor domain.Actor, cabinetID, userID string, permissionIDs []string) error {
	return s.tx.InTx(ctx, func(st ports.Store) error {
		member, err := st.Members().Find(ctx, cabinetID, userID)
		if errors.Is(err, domain.ErrMemberNotFound) {
			return domain.ErrNotMember
		}
		if err != nil {
			return err
		}
		if len(permissionIDs) == 0 {
			return nil
		}
		if err := st.Members().Revoke(ctx, member.ID, permissionIDs); err != nil {
			return err
		}

		err = s.audit.Log(ctx, st, domain.AuditEntry{
			ActorID:     actor.UserRef(),
			CabinetID:   &cabinetID,
			SubjectType: domain.SubjectMembership,
			SubjectID:   member.ID,
			Event:       domain.EventPermissionRevoked,
			Description: "Permissions revoked from cabinet member",
			IPAddress:   actor.IPAddress,
			UserAgent:   actor.UserAgent,
			Metadata: map[string]any{
				"user_id":        userID,
				"permission_ids": permissionIDs,
			},
		})
		if err != nil {
			return err
		}

		s.invalidate(ctx, userID, cabinetID)
		return nil
	})
}

func (s *MembershipService) invalidate(ctx context.Context, userID, cabinetID string) {
	if err := s.cache.Invalidate(ctx, userID, cabinetID); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id":    userID,
			"cabinet_id": cabinetID,
		}).Warn("permission cache invalidation failed")
	}
}
