package service

import (
	"context"
	"strings"
	"time"

	"collectorhub/internal/featureflags"
	"collectorhub/internal/models"
	"collectorhub/internal/ranking"
	"collectorhub/internal/repository"
	"collectorhub/internal/validation"
)

type PostService struct {
	postRepo       repository.PostRepository
	membershipRepo repository.MembershipRepository
	isAdmin        func(ctx context.Context, userID uint) (bool, error)
	decorator      postDecorator
	now            func() time.Time
}

type CreatePostInput struct {
	UserID     uint
	CategoryID uint
	GroupID    *uint
	PostType   string
	Title      string
	Content    string
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

func NewPostService(
	postRepo repository.PostRepository,
	voteRepo repository.VoteRepository,
	membershipRepo repository.MembershipRepository,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
	flags *featureflags.Manager,
) *PostService {
	return &PostService{
		postRepo:       postRepo,
		membershipRepo: membershipRepo,
		isAdmin:        isAdmin,
		decorator:      postDecorator{posts: postRepo, votes: voteRepo, flags: flags},
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// CreatePost validates and stores a new post. Its hot score starts from the
// creation time alone.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	title, err := validation.NormalizeTitle(in.Title)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePostContent(in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	postType := models.PostTypeDiscussion
	if raw := strings.TrimSpace(in.PostType); raw != "" {
		postType = models.PostType(strings.ToLower(raw))
		if !postType.Valid() {
			return nil, models.NewValidationError("unknown post_type " + raw)
		}
	}

	if in.CategoryID == 0 {
		return nil, models.NewValidationError("category_id is required")
	}
	if _, err := s.membershipRepo.GetCategory(ctx, in.CategoryID); err != nil {
		return nil, storeError(err, "Category", in.CategoryID)
	}
	if in.GroupID != nil {
		group, err := s.membershipRepo.GetGroup(ctx, *in.GroupID)
		if err != nil {
			return nil, storeError(err, "Group", *in.GroupID)
		}
		if group.CategoryID != in.CategoryID {
			return nil, models.NewValidationError("group does not belong to the category")
		}
	}

	createdAt := s.now()
	post := &models.Post{
		UserID:     in.UserID,
		CategoryID: in.CategoryID,
		GroupID:    in.GroupID,
		PostType:   postType,
		Title:      title,
		Content:    in.Content,
		HotScore:   ranking.HotScore(0, 0, createdAt),
		CreatedAt:  createdAt,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, storeError(err, "Post", 0)
	}
	return s.GetPost(ctx, post.ID, in.UserID)
}

// GetPost loads one post decorated for the viewer.
func (s *PostService) GetPost(ctx context.Context, postID, viewerID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, storeError(err, "Post", postID)
	}
	if err := s.decorator.decorate(ctx, viewerID, []*models.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// DeletePost removes the post with its comments, votes and saves. Only the
// author or an admin may delete.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return storeError(err, "Post", in.PostID)
	}

	if post.UserID != in.UserID {
		if s.isAdmin == nil {
			return models.NewForbiddenError("You can only delete your own posts")
		}
		admin, err := s.isAdmin(ctx, in.UserID)
		if err != nil {
			return models.NewUnavailableError(err)
		}
		if !admin {
			return models.NewForbiddenError("You can only delete your own posts")
		}
	}

	return storeError(s.postRepo.Delete(ctx, in.PostID), "Post", in.PostID)
}

// SavePost bookmarks a post for the user. Saving twice is a no-op.
func (s *PostService) SavePost(ctx context.Context, userID, postID uint) error {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return storeError(err, "Post", postID)
	}
	return storeError(s.postRepo.Save(ctx, userID, postID), "Post", postID)
}

// UnsavePost removes a bookmark. Removing a missing bookmark is a no-op.
func (s *PostService) UnsavePost(ctx context.Context, userID, postID uint) error {
	return storeError(s.postRepo.Unsave(ctx, userID, postID), "Post", postID)
}
