package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/matchchat/internal/db"
)

// UserRepository is the identity store: users and their credentials.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// CreateWithProfile inserts the user and its profile in one transaction.
// A duplicate email surfaces as gorm.ErrDuplicatedKey.
func (r *UserRepository) CreateWithProfile(ctx context.Context, user *db.User, profile *db.Profile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Profile").Create(user).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
}

// FindByID returns the user with its profile preloaded.
func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).Preload("Profile").First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail looks a user up by its unique email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*db.User, error) {
	var user db.User
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EmailTaken reports whether a user already registered with email.
func (r *UserRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// CountExisting returns how many of ids resolve to users.
func (r *UserRepository) CountExisting(ctx context.Context, ids ...uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.User{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}

func (r *UserRepository) TouchLogin(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}
