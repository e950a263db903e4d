package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xelth-com/geoattend/internal/models"
	"gorm.io/gorm"
)

// UserRepository stores accounts and their sign-in history in PostgreSQL
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("email %s: %w", u.Email, ErrDuplicate)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("lower(email) = lower(?)", email).First(&u).Error
	return r.found(&u, err)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var u models.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	return r.found(&u, err)
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	if offset < 0 {
		offset = 0
	}
	q := r.db.WithContext(ctx).Order("created_at ASC, email ASC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id, role string) error {
	return r.updateColumn(ctx, id, "role", role)
}

func (r *UserRepository) SetPhotoURL(ctx context.Context, id, url string) error {
	return r.updateColumn(ctx, id, "photo_url", url)
}

// RecordLogIn stamps last_login and appends to log_ins in one transaction
func (r *UserRepository) RecordLogIn(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", id).Update("last_login", at.UTC())
		if res.Error != nil {
			return fmt.Errorf("stamp last login: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Create(&models.LogIn{UserID: id, LogInDateTime: at.UTC()}).Error
	})
}

func (r *UserRepository) updateColumn(ctx context.Context, id, column string, value interface{}) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("update user %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) found(u *models.User, err error) (*models.User, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}
