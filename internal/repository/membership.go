package repository

import (
	"context"

	"collectorhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MembershipRepository covers categories, interest groups and the
// memberships that scope personal feeds.
type MembershipRepository interface {
	ListCategories(ctx context.Context) ([]*models.Category, error)
	GetCategory(ctx context.Context, id uint) (*models.Category, error)
	GetGroup(ctx context.Context, id uint) (*models.InterestGroup, error)
	EnsureCategory(ctx context.Context, category *models.Category) error
	EnsureGroup(ctx context.Context, group *models.InterestGroup) error
	JoinCategory(ctx context.Context, userID, categoryID uint) error
	LeaveCategory(ctx context.Context, userID, categoryID uint) error
	JoinGroup(ctx context.Context, userID, groupID uint) error
	LeaveGroup(ctx context.Context, userID, groupID uint) error
	GetMembershipSet(ctx context.Context, userID uint) (*models.MembershipSet, error)
}

type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository creates a new MembershipRepository.
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	var categories []*models.Category
	err := r.db.WithContext(ctx).
		Preload("Groups", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Order("name ASC").
		Find(&categories).Error
	return categories, err
}

func (r *membershipRepository) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *membershipRepository) GetGroup(ctx context.Context, id uint) (*models.InterestGroup, error) {
	var group models.InterestGroup
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// EnsureCategory inserts the category unless its slug exists and loads the
// stored row back into category.
func (r *membershipRepository) EnsureCategory(ctx context.Context, category *models.Category) error {
	err := r.db.WithContext(ctx).
		Omit("Groups").
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(category).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Omit("Groups").Where("slug = ?", category.Slug).First(category).Error
}

// EnsureGroup inserts the group unless its slug exists and loads the stored
// row back into group.
func (r *membershipRepository) EnsureGroup(ctx context.Context, group *models.InterestGroup) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(group).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("slug = ?", group.Slug).First(group).Error
}

func (r *membershipRepository) JoinCategory(ctx context.Context, userID, categoryID uint) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.CategoryMembership{UserID: userID, CategoryID: categoryID}).Error
}

func (r *membershipRepository) LeaveCategory(ctx context.Context, userID, categoryID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND category_id = ?", userID, categoryID).
		Delete(&models.CategoryMembership{}).Error
}

func (r *membershipRepository) JoinGroup(ctx context.Context, userID, groupID uint) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.GroupMembership{UserID: userID, GroupID: groupID}).Error
}

func (r *membershipRepository) LeaveGroup(ctx context.Context, userID, groupID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		Delete(&models.GroupMembership{}).Error
}

// GetMembershipSet loads the category and group ids the user belongs to.
func (r *membershipRepository) GetMembershipSet(ctx context.Context, userID uint) (*models.MembershipSet, error) {
	set := &models.MembershipSet{CategoryIDs: []uint{}, GroupIDs: []uint{}}
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.CategoryMembership{}).
		Where("user_id = ?", userID).
		Order("category_id ASC").
		Pluck("category_id", &set.CategoryIDs).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.GroupMembership{}).
		Where("user_id = ?", userID).
		Order("group_id ASC").
		Pluck("group_id", &set.GroupIDs).Error; err != nil {
		return nil, err
	}
	return set, nil
}
