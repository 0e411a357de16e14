package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
)

type MemberRepository struct {
	db *gorm.DB
}

func (r *MemberRepository) Create(ctx context.Context, m domain.Membership) (domain.Membership, error) {
	model := memberModel{
		ID:        m.ID,
		CabinetID: m.CabinetID,
		UserID:    m.UserID,
		Role:      m.Role,
		IsOwner:   m.IsOwner,
		JoinedAt:  m.JoinedAt,
	}
	if model.JoinedAt.IsZero() {
		model.JoinedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Membership{}, fmt.Errorf("insert membership: %w", err)
	}
	return toMembership(model), nil
}

func (r *MemberRepository) Find(ctx context.Context, cabinetID, userID string) (domain.Membership, error) {
	var model memberModel
	err := r.db.WithContext(ctx).
		Where("cabinet_id = ? AND user_id = ?", cabinetID, userID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Membership{}, domain.ErrMemberNotFound
	}
	if err != nil {
		return domain.Membership{}, fmt.Errorf("find membership: %w", err)
	}
	return toMembership(model), nil
}

func (r *MemberRepository) ListForCabinet(ctx context.Context, cabinetID string) ([]domain.Membership, error) {
	var models []memberModel
	err := r.db.WithContext(ctx).
		Where("cabinet_id = ?", cabinetID).
		Order("joined_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list cabinet members: %w", err)
	}
	result := make([]domain.Membership, 0, len(models))
	for _, m := range models {
		result = append(result, toMembership(m))
	}
	return result, nil
}

func (r *MemberRepository) SetOwnerFlag(ctx context.Context, memberID string, isOwner bool) error {
	res := r.db.WithContext(ctx).Model(&memberModel{}).
		Where("id = ?", memberID).
		Update("is_owner", isOwner)
	if res.Error != nil {
		return fmt.Errorf("set owner flag: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) SetRole(ctx context.Context, memberID, role string) error {
	res := r.db.WithContext(ctx).Model(&memberModel{}).
		Where("id = ?", memberID).
		Update("role", role)
	if res.Error != nil {
		return fmt.Errorf("set role: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) Delete(ctx context.Context, memberID string) error {
	res := r.db.WithContext(ctx).Where("id = ?", memberID).Delete(&memberModel{})
	if res.Error != nil {
		return fmt.Errorf("delete membership: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) DeleteForUser(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).
		Where("member_id IN (?)", r.db.Model(&memberModel{}).Select("id").Where("user_id = ?", userID)).
		Delete(&memberPermissionModel{}).Error
	if err != nil {
		return fmt.Errorf("delete membership grants for user: %w", err)
	}
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&memberModel{}).Error; err != nil {
		return fmt.Errorf("delete memberships for user: %w", err)
	}
	return nil
}

func (r *MemberRepository) Grant(ctx context.Context, memberID string, permissionIDs []string) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	rows := make([]memberPermissionModel, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		rows = append(rows, memberPermissionModel{MemberID: memberID, PermissionID: id})
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("grant permissions: %w", err)
	}
	return nil
}

func (r *MemberRepository) Revoke(ctx context.Context, memberID string, permissionIDs []string) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Where("member_id = ? AND permission_id IN ?", memberID, permissionIDs).
		Delete(&memberPermissionModel{}).Error
	if err != nil {
		return fmt.Errorf("revoke permissions: %w", err)
	}
	return nil
}

func (r *MemberRepository) Sync(ctx context.Context, memberID string, permissionIDs []string) error {
	err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Delete(&memberPermissionModel{}).Error
	if err != nil {
		return fmt.Errorf("clear permissions: %w", err)
	}
	return r.Grant(ctx, memberID, permissionIDs)
}

func (r *MemberRepository) PermissionNames(ctx context.Context, memberID string) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&permissionModel{}).
		Joins("JOIN member_permissions ON member_permissions.permission_id = permissions.id").
		Where("member_permissions.member_id = ? AND permissions.is_active = ?", memberID, true).
		Order("permissions.name ASC").
		Pluck("permissions.name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("list permission names: %w", err)
	}
	return names, nil
}

func (r *MemberRepository) HasPermission(ctx context.Context, memberID, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&permissionModel{}).
		Joins("JOIN member_permissions ON member_permissions.permission_id = permissions.id").
		Where("member_permissions.member_id = ? AND permissions.name = ? AND permissions.is_active = ?",
			memberID, name, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check permission: %w", err)
	}
	return count > 0, nil
}

func toMembership(m memberModel) domain.Membership {
	return domain.Membership{
		ID:        m.ID,
		CabinetID: m.CabinetID,
		UserID:    m.UserID,
		Role:      m.Role,
		IsOwner:   m.IsOwner,
		JoinedAt:  m.JoinedAt,
	}
}
