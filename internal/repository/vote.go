package repository

import (
	"context"
	"time"

	"collectorhub/internal/models"
	"collectorhub/internal/ranking"

	"gorm.io/gorm"
)

// ApplyVoteParams describes one ledger mutation. With Remove set, Value is
// ignored and any existing vote is withdrawn.
type ApplyVoteParams struct {
	UserID uint
	Target models.VoteTarget
	Value  int
	Remove bool
}

// VoteOutcome is the state of the target after a ledger mutation. Value is 0
// when the user no longer holds a vote; HotScore is set for post targets only.
type VoteOutcome struct {
	Transition    models.VoteTransition
	Value         int
	UpvoteCount   int
	DownvoteCount int
	HotScore      *float64
}

// VoteRepository owns the vote ledger and the counters derived from it.
type VoteRepository interface {
	Apply(ctx context.Context, p ApplyVoteParams) (*VoteOutcome, error)
	VotesByUser(ctx context.Context, userID uint, kind models.VoteTargetKind, targetIDs []uint) (map[uint]int, error)
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository creates a new VoteRepository
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

// Apply runs one state-machine transition in a single transaction: the
// target row is locked, the existing vote read, the ledger row inserted,
// updated or deleted, and the counters moved by the transition's deltas.
// Post targets get their hot score recomputed from the new counters.
func (r *voteRepository) Apply(ctx context.Context, p ApplyVoteParams) (*VoteOutcome, error) {
	var out *VoteOutcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = applyVote(tx, p)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateVote
		}
		return nil, err
	}
	return out, nil
}

func targetTable(kind models.VoteTargetKind) string {
	if kind == models.VoteTargetComment {
		return "comments"
	}
	return "posts"
}

func applyVote(tx *gorm.DB, p ApplyVoteParams) (*VoteOutcome, error) {
	table := targetTable(p.Target.Kind)
	column := p.Target.Column()

	createdAt, err := lockTarget(tx, p.Target)
	if err != nil {
		return nil, err
	}

	var existing models.Vote
	res := tx.Where("user_id = ? AND "+column+" = ?", p.UserID, p.Target.ID).Limit(1).Find(&existing)
	if res.Error != nil {
		return nil, res.Error
	}
	current := 0
	if res.RowsAffected > 0 {
		current = existing.Value
	}

	t := models.Transition(current, p.Value)
	if p.Remove {
		t = models.RemovalTransition(current)
	}

	switch t.Action {
	case models.VoteActionInsert:
		vote := models.Vote{UserID: p.UserID, Value: t.Next}
		id := p.Target.ID
		if p.Target.Kind == models.VoteTargetComment {
			vote.CommentID = &id
		} else {
			vote.PostID = &id
		}
		if err := tx.Create(&vote).Error; err != nil {
			return nil, err
		}
	case models.VoteActionUpdate:
		if err := tx.Model(&models.Vote{}).Where("id = ?", existing.ID).Update("value", t.Next).Error; err != nil {
			return nil, err
		}
	case models.VoteActionDelete:
		if err := tx.Delete(&models.Vote{}, existing.ID).Error; err != nil {
			return nil, err
		}
	}

	if t.UpDelta != 0 || t.DownDelta != 0 {
		err := tx.Table(table).Where("id = ?", p.Target.ID).UpdateColumns(map[string]interface{}{
			"upvote_count":   gorm.Expr("upvote_count + ?", t.UpDelta),
			"downvote_count": gorm.Expr("downvote_count + ?", t.DownDelta),
		}).Error
		if err != nil {
			return nil, err
		}
	}

	var counts struct {
		UpvoteCount   int
		DownvoteCount int
	}
	if err := tx.Table(table).Select("upvote_count", "downvote_count").Where("id = ?", p.Target.ID).Take(&counts).Error; err != nil {
		return nil, err
	}

	out := &VoteOutcome{
		Transition:    t,
		Value:         t.Next,
		UpvoteCount:   counts.UpvoteCount,
		DownvoteCount: counts.DownvoteCount,
	}

	if p.Target.Kind == models.VoteTargetPost {
		score := ranking.HotScore(counts.UpvoteCount, counts.DownvoteCount, createdAt)
		if err := tx.Table(table).Where("id = ?", p.Target.ID).UpdateColumn("hot_score", score).Error; err != nil {
			return nil, err
		}
		out.HotScore = &score
	}
	return out, nil
}

// lockTarget locks the post or comment row and returns its creation time.
func lockTarget(tx *gorm.DB, target models.VoteTarget) (time.Time, error) {
	if target.Kind == models.VoteTargetComment {
		var comment models.Comment
		if err := forUpdate(tx).Select("id", "created_at").First(&comment, target.ID).Error; err != nil {
			return time.Time{}, err
		}
		return comment.CreatedAt, nil
	}
	var post models.Post
	if err := forUpdate(tx).Select("id", "created_at").First(&post, target.ID).Error; err != nil {
		return time.Time{}, err
	}
	return post.CreatedAt, nil
}

// VotesByUser maps each target id the user voted on to the vote value.
func (r *voteRepository) VotesByUser(ctx context.Context, userID uint, kind models.VoteTargetKind, targetIDs []uint) (map[uint]int, error) {
	out := make(map[uint]int, len(targetIDs))
	if userID == 0 || len(targetIDs) == 0 {
		return out, nil
	}

	column := models.VoteTarget{Kind: kind}.Column()
	var votes []models.Vote
	err := r.db.WithContext(ctx).
		Select("post_id", "comment_id", "value").
		Where("user_id = ? AND "+column+" IN ?", userID, targetIDs).
		Find(&votes).Error
	if err != nil {
		return nil, err
	}

	for _, v := range votes {
		switch {
		case kind == models.VoteTargetPost && v.PostID != nil:
			out[*v.PostID] = v.Value
		case kind == models.VoteTargetComment && v.CommentID != nil:
			out[*v.CommentID] = v.Value
		}
	}
	return out, nil
}
