package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
)

type CabinetRepository struct {
	db *gorm.DB
}

func (r *CabinetRepository) Create(ctx context.Context, cabinet domain.Cabinet) (domain.Cabinet, error) {
	now := time.Now().UTC()
	model := cabinetModel{
		ID:          cabinet.ID,
		Name:        cabinet.Name,
		Description: cabinet.Description,
		OwnerID:     cabinet.OwnerID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Cabinet{}, fmt.Errorf("insert cabinet: %w", err)
	}
	return toCabinet(model), nil
}

func (r *CabinetRepository) Get(ctx context.Context, id string) (domain.Cabinet, error) {
	var model cabinetModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Cabinet{}, domain.ErrCabinetNotFound
	}
	if err != nil {
		return domain.Cabinet{}, fmt.Errorf("get cabinet: %w", err)
	}
	return toCabinet(model), nil
}

func (r *CabinetRepository) Update(ctx context.Context, cabinet domain.Cabinet) error {
	res := r.db.WithContext(ctx).Model(&cabinetModel{}).
		Where("id = ?", cabinet.ID).
		Updates(map[string]any{
			"name":        cabinet.Name,
			"description": cabinet.Description,
			"owner_id":    cabinet.OwnerID,
			"is_active":   cabinet.Active,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("update cabinet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrCabinetNotFound
	}
	return nil
}

func (r *CabinetRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&cabinetModel{})
	if res.Error != nil {
		return fmt.Errorf("delete cabinet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrCabinetNotFound
	}
	return nil
}

func (r *CabinetRepository) ListOwnedBy(ctx context.Context, userID string) ([]domain.Cabinet, error) {
	var models []cabinetModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", userID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list owned cabinets: %w", err)
	}
	return toCabinets(models), nil
}

func (r *CabinetRepository) ListForUser(ctx context.Context, userID string) ([]domain.Cabinet, error) {
	var models []cabinetModel
	err := r.db.WithContext(ctx).
		Joins("JOIN cabinet_members ON cabinet_members.cabinet_id = cabinets.id").
		Where("cabinet_members.user_id = ?", userID).
		Order("cabinets.created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list cabinets for user: %w", err)
	}
	return toCabinets(models), nil
}

func toCabinet(m cabinetModel) domain.Cabinet {
	return domain.Cabinet{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		OwnerID:     m.OwnerID,
		Active:      m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toCabinets(models []cabinetModel) []domain.Cabinet {
	result := make([]domain.Cabinet, 0, len(models))
	for _, m := range models {
		result = append(result, toCabinet(m))
	}
	return result
}
