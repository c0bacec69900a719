package repository

import (
	"context"
	"strings"

	"collectorhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	IsAdmin(ctx context.Context, id uint) (bool, error)
	Create(ctx context.Context, user *models.User) error
	EnsureByUsername(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username))).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IsAdmin reports the admin bit; unknown users are not admins.
func (r *userRepository) IsAdmin(ctx context.Context, id uint) (bool, error) {
	var flags []bool
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Limit(1).Pluck("is_admin", &flags).Error; err != nil {
		return false, err
	}
	return len(flags) == 1 && flags[0], nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// EnsureByUsername inserts the user unless the username is taken, then
// loads the stored row into user.
func (r *userRepository) EnsureByUsername(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "username"}}, DoNothing: true}).
		Create(user).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("username = ?", user.Username).First(user).Error
}
