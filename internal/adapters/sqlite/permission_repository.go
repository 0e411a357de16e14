package sqlite

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
)

type PermissionRepository struct {
	db *gorm.DB
}

func (r *PermissionRepository) List(ctx context.Context) ([]domain.Permission, error) {
	var models []permissionModel
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return toPermissions(models), nil
}

func (r *PermissionRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []permissionModel
	err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Order("name ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("find permissions by ids: %w", err)
	}
	return toPermissions(models), nil
}

func (r *PermissionRepository) ByCategories(ctx context.Context, categories []string) ([]domain.Permission, error) {
	if len(categories) == 0 {
		return nil, nil
	}
	var models []permissionModel
	err := r.db.WithContext(ctx).
		Where("category IN ? AND is_active = ?", categories, true).
		Order("name ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("find permissions by category: %w", err)
	}
	return toPermissions(models), nil
}

// Upsert inserts or refreshes one catalog row, keyed by name. Used only by
// the seeder at startup; the catalog has no runtime mutation API.
func (r *PermissionRepository) Upsert(ctx context.Context, p domain.Permission) error {
	model := permissionModel{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		IsActive:    p.Active,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"description", "category", "is_active"}),
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("upsert permission %s: %w", p.Name, err)
	}
	return nil
}

func toPermissions(models []permissionModel) []domain.Permission {
	result := make([]domain.Permission, 0, len(models))
	for _, m := range models {
		result = append(result, domain.Permission{
			ID:          m.ID,
			Name:        m.Name,
			Description: m.Description,
			Category:    m.Category,
			Active:      m.IsActive,
		})
	}
	return result
}
