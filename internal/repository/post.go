package repository

import (
	"context"

	"collectorhub/internal/models"
	"collectorhub/internal/ranking"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Delete(ctx context.Context, id uint) error
	ListFeed(ctx context.Context, q FeedQuery) ([]*models.Post, error)
	SavedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error)
	Save(ctx context.Context, userID, postID uint) error
	Unsave(ctx context.Context, userID, postID uint) error
	ListIDsAfter(ctx context.Context, afterID uint, limit int) ([]uint, error)
	ReconcileCounters(ctx context.Context, postID uint) (*CounterRepair, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("User").First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// Delete removes a post with its comments, every vote on the post or its
// comments, and its saves, in one transaction.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := forUpdate(tx).Select("id").First(&post, id).Error; err != nil {
			return err
		}

		steps := []func() error{
			func() error {
				return tx.Exec("DELETE FROM votes WHERE comment_id IN (SELECT id FROM comments WHERE post_id = ?)", id).Error
			},
			func() error { return tx.Where("post_id = ?", id).Delete(&models.Vote{}).Error },
			func() error { return tx.Where("post_id = ?", id).Delete(&models.SavedPost{}).Error },
			func() error { return tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error },
			func() error { return tx.Delete(&models.Post{}, id).Error },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return nil
	})
}

// SavedPostIDs reports which of postIDs the user has saved.
func (r *postRepository) SavedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(postIDs))
	if userID == 0 || len(postIDs) == 0 {
		return out, nil
	}

	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.SavedPost{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// Save bookmarks a post; saving twice is a no-op.
func (r *postRepository) Save(ctx context.Context, userID, postID uint) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.SavedPost{UserID: userID, PostID: postID}).Error
}

// Unsave removes a bookmark; removing a missing one is a no-op.
func (r *postRepository) Unsave(ctx context.Context, userID, postID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.SavedPost{}).Error
}

// ListIDsAfter pages through post ids in ascending order.
func (r *postRepository) ListIDsAfter(ctx context.Context, afterID uint, limit int) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// CounterRepair describes what ReconcileCounters had to fix.
type CounterRepair struct {
	PostRepaired     bool
	CommentsRepaired int64
}

// ReconcileCounters recomputes a post's aggregates from the ledger and the
// comments table under the post's row lock, and rewrites them (with the hot
// score) only when they drifted. Vote counters on the post's comments are
// repaired in the same transaction, after the comment rows are locked.
func (r *postRepository) ReconcileCounters(ctx context.Context, postID uint) (*CounterRepair, error) {
	repair := &CounterRepair{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := forUpdate(tx).First(&post, postID).Error; err != nil {
			return err
		}

		var tally struct {
			Up   int
			Down int
		}
		err := tx.Model(&models.Vote{}).
			Select("COALESCE(SUM(CASE WHEN value = 1 THEN 1 ELSE 0 END), 0) AS up, "+
				"COALESCE(SUM(CASE WHEN value = -1 THEN 1 ELSE 0 END), 0) AS down").
			Where("post_id = ?", postID).
			Scan(&tally).Error
		if err != nil {
			return err
		}

		var comments int64
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&comments).Error; err != nil {
			return err
		}

		score := ranking.HotScore(tally.Up, tally.Down, post.CreatedAt)
		if post.UpvoteCount != tally.Up || post.DownvoteCount != tally.Down ||
			post.CommentCount != int(comments) || post.HotScore != score {
			err := tx.Table("posts").Where("id = ?", postID).UpdateColumns(map[string]interface{}{
				"upvote_count":   tally.Up,
				"downvote_count": tally.Down,
				"comment_count":  comments,
				"hot_score":      score,
			}).Error
			if err != nil {
				return err
			}
			repair.PostRepaired = true
		}

		// Lock the comment rows first so the recount below reads votes
		// committed by any ledger transaction that held one of them.
		var commentIDs []uint
		err = forUpdate(tx).Model(&models.Comment{}).
			Where("post_id = ?", postID).
			Order("id").
			Pluck("id", &commentIDs).Error
		if err != nil {
			return err
		}
		if len(commentIDs) == 0 {
			return nil
		}

		res := tx.Exec(`UPDATE comments SET
	upvote_count = (SELECT COUNT(*) FROM votes WHERE votes.comment_id = comments.id AND votes.value = 1),
	downvote_count = (SELECT COUNT(*) FROM votes WHERE votes.comment_id = comments.id AND votes.value = -1)
WHERE post_id = ? AND (
	upvote_count <> (SELECT COUNT(*) FROM votes WHERE votes.comment_id = comments.id AND votes.value = 1) OR
	downvote_count <> (SELECT COUNT(*) FROM votes WHERE votes.comment_id = comments.id AND votes.value = -1)
)`, postID)
		if res.Error != nil {
			return res.Error
		}
		repair.CommentsRepaired = res.RowsAffected
		return nil
	})
	if err != nil {
		return nil, err
	}
	return repair, nil
}
