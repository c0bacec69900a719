package service

import (
	"context"
	"errors"

	"collectorhub/internal/models"
	"collectorhub/internal/observability"
	"collectorhub/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// VoteService applies the vote state machine to posts and comments.
type VoteService struct {
	votes repository.VoteRepository
}

type CastVoteInput struct {
	UserID    uint
	PostID    *uint
	CommentID *uint
	Value     int
}

type RemoveVoteInput struct {
	UserID    uint
	PostID    *uint
	CommentID *uint
}

// VoteResult is the target's state after the mutation. VoteValue is nil when
// the user no longer holds a vote; HotScore is only set for posts.
type VoteResult struct {
	VoteValue     *int     `json:"vote_value"`
	UpvoteCount   int      `json:"upvote_count"`
	DownvoteCount int      `json:"downvote_count"`
	HotScore      *float64 `json:"hot_score,omitempty"`
}

func NewVoteService(votes repository.VoteRepository) *VoteService {
	return &VoteService{votes: votes}
}

// CastVote records value on the target. Repeating the current value removes
// the vote; the opposite value flips it.
func (s *VoteService) CastVote(ctx context.Context, in CastVoteInput) (*VoteResult, error) {
	if in.Value != models.Upvote && in.Value != models.Downvote {
		return nil, models.NewValidationError("value must be 1 or -1")
	}
	target, err := resolveVoteTarget(in.PostID, in.CommentID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, "CastVote", repository.ApplyVoteParams{
		UserID: in.UserID,
		Target: target,
		Value:  in.Value,
	})
}

// RemoveVote withdraws the user's vote on the target. Removing a vote that
// does not exist leaves the counters unchanged and is not an error.
func (s *VoteService) RemoveVote(ctx context.Context, in RemoveVoteInput) (*VoteResult, error) {
	target, err := resolveVoteTarget(in.PostID, in.CommentID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, "RemoveVote", repository.ApplyVoteParams{
		UserID: in.UserID,
		Target: target,
		Remove: true,
	})
}

func resolveVoteTarget(postID, commentID *uint) (models.VoteTarget, error) {
	switch {
	case postID != nil && commentID != nil:
		return models.VoteTarget{}, models.NewValidationError("specify either post_id or comment_id, not both")
	case postID != nil && *postID != 0:
		return models.VoteTarget{Kind: models.VoteTargetPost, ID: *postID}, nil
	case commentID != nil && *commentID != 0:
		return models.VoteTarget{Kind: models.VoteTargetComment, ID: *commentID}, nil
	default:
		return models.VoteTarget{}, models.NewValidationError("post_id or comment_id is required")
	}
}

func (s *VoteService) apply(ctx context.Context, method string, p repository.ApplyVoteParams) (result *VoteResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "VoteService", method,
		attribute.String("vote.target", string(p.Target.Kind)),
		attribute.Int64("vote.target_id", int64(p.Target.ID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if p.UserID == 0 {
		return nil, models.NewUnauthorizedError("authentication required")
	}

	out, err := s.votes.Apply(ctx, p)
	if errors.Is(err, repository.ErrDuplicateVote) {
		// The losing transaction rolled back; a retry sees the winner's row.
		out, err = s.votes.Apply(ctx, p)
		if errors.Is(err, repository.ErrDuplicateVote) {
			observability.VoteConflicts.WithLabelValues("conflict").Inc()
			return nil, models.NewConflictError("vote changed concurrently, please retry", err)
		}
		if err == nil {
			observability.VoteConflicts.WithLabelValues("retried").Inc()
		}
	}
	if err != nil {
		return nil, storeError(err, voteResourceName(p.Target.Kind), p.Target.ID)
	}

	observability.VoteTransitions.WithLabelValues(string(p.Target.Kind), out.Transition.Action.String()).Inc()

	result = &VoteResult{
		UpvoteCount:   out.UpvoteCount,
		DownvoteCount: out.DownvoteCount,
		HotScore:      out.HotScore,
	}
	if out.Value != 0 {
		v := out.Value
		result.VoteValue = &v
	}
	return result, nil
}

func voteResourceName(kind models.VoteTargetKind) string {
	if kind == models.VoteTargetComment {
		return "Comment"
	}
	return "Post"
}
