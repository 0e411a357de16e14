package usecase

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
	"github.com/atvirokodosprendimai/cabinetd/internal/core/ports"
)

// UserDeletionService removes a user together with every cabinet they own.
// Co-members of deleted cabinets are notified before the deletion inside the
// same transaction, so the notification still carries the cabinet name. A
// failure at any step rolls the whole cascade back; a partially deleted user
// is never observable.
type UserDeletionService struct {
	tx       ports.Transactor
	store    ports.Store
	audit    ports.AuditLogger
	cache    ports.PermissionCache
	notifier ports.Notifier
	log      *logrus.Logger
}

func NewUserDeletionService(tx ports.Transactor, store ports.Store, audit ports.AuditLogger, cache ports.PermissionCache, notifier ports.Notifier, log *logrus.Logger) *UserDeletionService {
	return &UserDeletionService{tx: tx, store: store, audit: audit, cache: cache, notifier: notifier, log: log}
}

type DeletionResult struct {
	User            domain.User
	DeletedCabinets []domain.Cabinet
	NotifiedUserIDs []string
}

type DeletionSummary struct {
	User          domain.User
	OwnedCabinets []domain.Cabinet
	AffectedUsers []domain.User
}

// DeleteUserWithCascade deletes the user, every cabinet they own, their
// remaining memberships, their audit rows and message read state, in one
// transaction.
func (s *UserDeletionService) DeleteUserWithCascade(ctx context.Context, userID string) (DeletionResult, error) {
	var result DeletionResult
	err := s.tx.InTx(ctx, func(st ports.Store) error {
		user, err := st.Users().FindByID(ctx, userID)
		if err != nil {
			return err
		}
		result.User = user

		owned, err := st.Cabinets().ListOwnedBy(ctx, userID)
		if err != nil {
			return err
		}
		result.DeletedCabinets = owned

		notified := map[string]bool{}
		for _, cabinet := range owned {
			members, err := st.Members().ListForCabinet(ctx, cabinet.ID)
			if err != nil {
				return err
			}
			coMembers := make([]string, 0, len(members))
			for _, m := range members {
				if m.UserID == userID {
					continue
				}
				coMembers = append(coMembers, m.UserID)
				s.invalidate(ctx, m.UserID, cabinet.ID)
			}
			if len(coMembers) == 0 {
				continue
			}

			body := fmt.Sprintf("Cabinet %q was deleted because its owner was removed from the system.", cabinet.Name)
			if err := s.notifier.Notify(ctx, st, coMembers, "Cabinet deleted", body); err != nil {
				return fmt.Errorf("notify cabinet %s co-members: %w", cabinet.ID, err)
			}
			for _, id := range coMembers {
				if !notified[id] {
					notified[id] = true
					result.NotifiedUserIDs = append(result.NotifiedUserIDs, id)
				}
			}
		}

		for _, cabinet := range owned {
			if err := deleteCabinet(ctx, st, s.audit, domain.SystemActor(), cabinet); err != nil {
				return err
			}
		}

		if err := st.Members().DeleteForUser(ctx, userID); err != nil {
			return err
		}
		if err := st.Audit().DeleteForUser(ctx, userID); err != nil {
			return err
		}
		if err := st.Messages().DeleteForUser(ctx, userID); err != nil {
			return err
		}
		if err := st.Users().Delete(ctx, userID); err != nil {
			return err
		}

		return s.audit.Log(ctx, st, domain.AuditEntry{
			ActorID:     nil,
			SubjectType: domain.SubjectUser,
			SubjectID:   userID,
			Event:       domain.EventUserDeleted,
			Description: "User deleted with cascade",
			Metadata: map[string]any{
				"user_phone":       user.Phone,
				"deleted_cabinets": len(owned),
			},
		})
	})
	if err != nil {
		return DeletionResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":          userID,
		"deleted_cabinets": len(result.DeletedCabinets),
		"notified_users":   len(result.NotifiedUserIDs),
	}).Info("user deleted with cascade")
	return result, nil
}

// GetDeletionSummary previews the cascade without mutating anything.
func (s *UserDeletionService) GetDeletionSummary(ctx context.Context, userID string) (DeletionSummary, error) {
	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		return DeletionSummary{}, err
	}

	owned, err := s.store.Cabinets().ListOwnedBy(ctx, userID)
	if err != nil {
		return DeletionSummary{}, err
	}

	summary := DeletionSummary{User: user, OwnedCabinets: owned}
	seen := map[string]bool{}
	for _, cabinet := range owned {
		members, err := s.store.Members().ListForCabinet(ctx, cabinet.ID)
		if err != nil {
			return DeletionSummary{}, err
		}
		for _, m := range members {
			if m.UserID == userID || seen[m.UserID] {
				continue
			}
			seen[m.UserID] = true
			affected, err := s.store.Users().FindByID(ctx, m.UserID)
			if err != nil {
				return DeletionSummary{}, err
			}
			summary.AffectedUsers = append(summary.AffectedUsers, affected)
		}
	}
	return summary, nil
}

func (s *UserDeletionService) invalidate(ctx context.Context, userID, cabinetID string) {
	if err := s.cache.Invalidate(ctx, userID, cabinetID); err != nil {
		s.log.WithError(err).Warn("permission cache invalidation failed")
	}
}
