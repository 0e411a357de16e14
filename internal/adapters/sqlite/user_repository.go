package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/cabinetd/internal/core/domain"
)

type UserRepository struct {
	db *gorm.DB
}

func (r *UserRepository) Create(ctx context.Context, u domain.User) (domain.User, error) {
	now := time.Now().UTC()
	model := userModel{
		ID:        u.ID,
		Name:      u.Name,
		Phone:     u.Phone,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return toUser(model), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	var model userModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return toUser(model), nil
}

func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (domain.User, error) {
	var model userModel
	err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user by phone: %w", err)
	}
	return toUser(model), nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&userModel{})
	if res.Error != nil {
		return fmt.Errorf("delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func toUser(m userModel) domain.User {
	return domain.User{
		ID:        m.ID,
		Name:      m.Name,
		Phone:     m.Phone,
		Active:    m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
