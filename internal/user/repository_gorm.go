package user

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// updatableColumns are written on every update; id is never touched.
var updatableColumns = []string{"email", "first_name", "last_name", "social"}

// GormRepository stores users through gorm. It works with any dialect the
// database package opens (postgres, sqlite).
type GormRepository struct {
	db *gorm.DB
}

var _ Repository = (*GormRepository)(nil)

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) List(ctx context.Context) ([]User, error) {
	users := make([]User, 0)
	if err := r.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *GormRepository) GetByID(ctx context.Context, id int) (User, error) {
	var user User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return User{}, translate(err, "get user %d", id)
	}
	return user, nil
}

func (r *GormRepository) Create(ctx context.Context, user User) (User, error) {
	user.ID = 0
	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *GormRepository) Update(ctx context.Context, id int, patch Payload) (User, error) {
	var user User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}

		patch.ApplyTo(&user)

		result := tx.Model(&user).Select(updatableColumns).Updates(&user)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return User{}, translate(err, "update user %d", id)
	}
	return user, nil
}

func (r *GormRepository) Delete(ctx context.Context, id int) error {
	result := r.db.WithContext(ctx).Delete(&User{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete user %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("delete user %d: %w", id, ErrNotFound)
	}
	return nil
}

func translate(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
