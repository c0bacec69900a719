package service

import (
	"context"
	"errors"

	"collectorhub/internal/featureflags"
	"collectorhub/internal/models"
	"collectorhub/internal/observability"
	"collectorhub/internal/render"
	"collectorhub/internal/repository"
	"collectorhub/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	voteRepo    repository.VoteRepository
	isAdmin     func(ctx context.Context, userID uint) (bool, error)
	flags       *featureflags.Manager
}

type CreateCommentInput struct {
	UserID   uint
	PostID   uint
	ParentID *uint
	Content  string
}

type UpdateCommentInput struct {
	UserID    uint
	CommentID uint
	Content   string
}

type DeleteCommentInput struct {
	UserID    uint
	CommentID uint
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	voteRepo repository.VoteRepository,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
	flags *featureflags.Manager,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		voteRepo:    voteRepo,
		isAdmin:     isAdmin,
		flags:       flags,
	}
}

// GetCommentTree returns the post's comments threaded by parent, with the
// viewer's own votes attached.
func (s *CommentService) GetCommentTree(ctx context.Context, postID, viewerID uint) (tree *CommentTree, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "CommentService", "GetCommentTree",
		attribute.Int64("post.id", int64(postID)))
	defer func() { observability.EndSpan(span, err) }()

	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, storeError(err, "Post", postID)
	}
	flat, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, storeError(err, "Post", postID)
	}

	ids := make([]uint, len(flat))
	for i, c := range flat {
		ids[i] = c.ID
	}
	votes, err := s.voteRepo.VotesByUser(ctx, viewerID, models.VoteTargetComment, ids)
	if err != nil {
		return nil, models.NewUnavailableError(err)
	}

	roots := BuildCommentTree(flat)
	renderHTML := s.flags.Enabled(featureflags.RenderContentHTML, viewerID)
	flatten(roots, func(n *CommentNode) {
		if v, ok := votes[n.ID]; ok {
			v := v
			n.UserVote = &v
		}
		if renderHTML {
			n.ContentHTML = render.Markdown(n.Content)
		}
	})

	observability.CommentTreeSize.Observe(float64(len(flat)))
	return &CommentTree{Comments: roots, TotalCount: len(flat)}, nil
}

// CreateComment adds a comment or a reply. Replies are rejected when the new
// comment would sit at MaxCommentDepth or deeper, and locked posts accept no
// new comments.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (node *CommentNode, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "CommentService", "CreateComment",
		attribute.Int64("post.id", int64(in.PostID)))
	defer func() { observability.EndSpan(span, err) }()

	content, err := validation.NormalizeComment(in.Content)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, storeError(err, "Post", in.PostID)
	}
	if post.IsLocked {
		return nil, models.NewForbiddenError("post is locked")
	}

	depth := 0
	if in.ParentID != nil {
		depth, err = s.replyDepth(ctx, in.PostID, *in.ParentID)
		if err != nil {
			return nil, err
		}
	}

	comment := &models.Comment{
		PostID:   in.PostID,
		UserID:   in.UserID,
		ParentID: in.ParentID,
		Content:  content,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, storeError(err, "Post", in.PostID)
	}

	created, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, storeError(err, "Comment", comment.ID)
	}
	node = &CommentNode{Comment: created, Depth: depth, Replies: []*CommentNode{}}
	if s.flags.Enabled(featureflags.RenderContentHTML, in.UserID) {
		node.ContentHTML = render.Markdown(created.Content)
	}
	return node, nil
}

// replyDepth returns the depth a reply to parentID would have, rejecting
// replies that would reach MaxCommentDepth.
func (s *CommentService) replyDepth(ctx context.Context, postID, parentID uint) (int, error) {
	parent, err := s.commentRepo.GetByID(ctx, parentID)
	if err != nil {
		return 0, storeError(err, "Comment", parentID)
	}
	if parent.PostID != postID {
		return 0, models.NewValidationError("parent comment belongs to a different post")
	}

	parentDepth, err := s.depthOf(ctx, parent)
	if err != nil {
		return 0, err
	}
	depth := parentDepth + 1
	if depth >= MaxCommentDepth {
		return 0, models.NewValidationError("maximum reply depth reached")
	}
	return depth, nil
}

// depthOf walks the ancestor chain of c. A chain that ends at a missing
// ancestor counts from there, matching how BuildCommentTree promotes orphans.
func (s *CommentService) depthOf(ctx context.Context, c *models.Comment) (int, error) {
	depth := 0
	seen := map[uint]bool{c.ID: true}
	for cur := c; cur.ParentID != nil && !seen[*cur.ParentID]; {
		next, err := s.commentRepo.GetByID(ctx, *cur.ParentID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			break
		}
		if err != nil {
			return 0, storeError(err, "Comment", *cur.ParentID)
		}
		depth++
		if depth >= MaxCommentDepth {
			break
		}
		seen[next.ID] = true
		cur = next
	}
	return depth, nil
}

// UpdateComment edits the author's own comment on an unlocked post and
// returns it in the same shape as a thread node.
func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*CommentNode, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, storeError(err, "Comment", in.CommentID)
	}
	if comment.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only edit your own comments")
	}

	content, err := validation.NormalizeComment(in.Content)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post, err := s.postRepo.GetByID(ctx, comment.PostID)
	if err != nil {
		return nil, storeError(err, "Post", comment.PostID)
	}
	if post.IsLocked {
		return nil, models.NewForbiddenError("post is locked")
	}

	if err := s.commentRepo.UpdateContent(ctx, comment.ID, content); err != nil {
		return nil, storeError(err, "Comment", comment.ID)
	}
	updated, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, storeError(err, "Comment", comment.ID)
	}

	depth, err := s.depthOf(ctx, updated)
	if err != nil {
		return nil, err
	}
	votes, err := s.voteRepo.VotesByUser(ctx, in.UserID, models.VoteTargetComment, []uint{updated.ID})
	if err != nil {
		return nil, models.NewUnavailableError(err)
	}

	node := &CommentNode{Comment: updated, Depth: depth, Replies: []*CommentNode{}}
	if v, ok := votes[updated.ID]; ok {
		node.UserVote = &v
	}
	if s.flags.Enabled(featureflags.RenderContentHTML, in.UserID) {
		node.ContentHTML = render.Markdown(updated.Content)
	}
	return node, nil
}

// DeleteComment removes the comment and all of its replies and returns how
// many comments were removed. Only the author or an admin may delete.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (deleted int64, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "CommentService", "DeleteComment",
		attribute.Int64("comment.id", int64(in.CommentID)))
	defer func() { observability.EndSpan(span, err) }()

	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return 0, storeError(err, "Comment", in.CommentID)
	}

	if comment.UserID != in.UserID {
		if s.isAdmin == nil {
			return 0, models.NewForbiddenError("You can only delete your own comments")
		}
		admin, err := s.isAdmin(ctx, in.UserID)
		if err != nil {
			return 0, models.NewUnavailableError(err)
		}
		if !admin {
			return 0, models.NewForbiddenError("You can only delete your own comments")
		}
	}

	deleted, err = s.commentRepo.DeleteSubtree(ctx, comment)
	if err != nil {
		return 0, storeError(err, "Comment", in.CommentID)
	}
	span.SetAttributes(attribute.Int64("comment.deleted", deleted))
	return deleted, nil
}
