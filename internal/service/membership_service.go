package service

import (
	"context"
	"time"

	"collectorhub/internal/cache"
	"collectorhub/internal/models"
	"collectorhub/internal/repository"
)

// MembershipService manages category and group memberships. Membership sets
// are cached per user and invalidated on every join or leave.
type MembershipService struct {
	repo  repository.MembershipRepository
	cache *cache.Cache
	ttl   time.Duration
}

func NewMembershipService(repo repository.MembershipRepository, c *cache.Cache, ttl time.Duration) *MembershipService {
	if ttl <= 0 {
		ttl = cache.MembershipTTL
	}
	return &MembershipService{repo: repo, cache: c, ttl: ttl}
}

// ListCategories returns every category with its interest groups.
func (s *MembershipService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	var categories []*models.Category
	err := s.cache.Aside(ctx, cache.CategoriesKey, &categories, cache.CategoriesTTL, func() error {
		var err error
		categories, err = s.repo.ListCategories(ctx)
		return err
	})
	if err != nil {
		return nil, storeError(err, "Category", "*")
	}
	return categories, nil
}

// MembershipSet returns the ids of the categories and groups the user joined.
func (s *MembershipService) MembershipSet(ctx context.Context, userID uint) (*models.MembershipSet, error) {
	if userID == 0 {
		return &models.MembershipSet{}, nil
	}
	var set models.MembershipSet
	err := s.cache.Aside(ctx, cache.MembershipKey(userID), &set, s.ttl, func() error {
		loaded, err := s.repo.GetMembershipSet(ctx, userID)
		if err != nil {
			return err
		}
		set = *loaded
		return nil
	})
	if err != nil {
		return nil, storeError(err, "User", userID)
	}
	return &set, nil
}

func (s *MembershipService) JoinCategory(ctx context.Context, userID, categoryID uint) error {
	if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
		return storeError(err, "Category", categoryID)
	}
	if err := s.repo.JoinCategory(ctx, userID, categoryID); err != nil {
		return storeError(err, "Category", categoryID)
	}
	s.cache.InvalidateMemberships(ctx, userID)
	return nil
}

func (s *MembershipService) LeaveCategory(ctx context.Context, userID, categoryID uint) error {
	if err := s.repo.LeaveCategory(ctx, userID, categoryID); err != nil {
		return storeError(err, "Category", categoryID)
	}
	s.cache.InvalidateMemberships(ctx, userID)
	return nil
}

func (s *MembershipService) JoinGroup(ctx context.Context, userID, groupID uint) error {
	if _, err := s.repo.GetGroup(ctx, groupID); err != nil {
		return storeError(err, "Group", groupID)
	}
	if err := s.repo.JoinGroup(ctx, userID, groupID); err != nil {
		return storeError(err, "Group", groupID)
	}
	s.cache.InvalidateMemberships(ctx, userID)
	return nil
}

func (s *MembershipService) LeaveGroup(ctx context.Context, userID, groupID uint) error {
	if err := s.repo.LeaveGroup(ctx, userID, groupID); err != nil {
		return storeError(err, "Group", groupID)
	}
	s.cache.InvalidateMemberships(ctx, userID)
	return nil
}
