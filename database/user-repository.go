package database

import (
	"context"
	"errors"

	"github.com/krishkalaria12/snap-thumbs/models"
	"github.com/krishkalaria12/snap-thumbs/oops"
	"gorm.io/gorm"
)

var ErrDuplicateUser = errors.New("username or email already taken")

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", user.Username, user.Email).
		Count(&count).Error
	if err != nil {
		return oops.New(err, "failed to check for existing user")
	}
	if count > 0 {
		return ErrDuplicateUser
	}

	if err := r.db.WithContext(ctx).Omit("Tier").Create(user).Error; err != nil {
		return oops.New(err, "failed to create user")
	}
	if err := r.db.WithContext(ctx).First(&user.Tier, user.TierID).Error; err != nil {
		return oops.New(err, "failed to load tier of new user")
	}
	return nil
}

// FindByID loads the user together with its tier.
func (r *UserRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) first(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Tier").Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, oops.New(err, "failed to fetch user")
	}
	return &user, nil
}
