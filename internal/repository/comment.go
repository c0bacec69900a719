package repository

import (
	"context"

	"collectorhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	UpdateContent(ctx context.Context, id uint, content string) error
	DeleteSubtree(ctx context.Context, comment *models.Comment) (int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts the comment and bumps the post's comment_count in the same
// transaction.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(comment).Error; err != nil {
			return err
		}
		res := tx.Table("posts").Where("id = ?", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByPost returns every comment on the post, oldest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) UpdateContent(ctx context.Context, id uint, content string) error {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Update("content", content)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

const commentSubtreeCTE = `WITH RECURSIVE subtree(id) AS (
	SELECT id FROM comments WHERE id = ?
	UNION ALL
	SELECT c.id FROM comments c JOIN subtree s ON c.parent_id = s.id
)
`

// DeleteSubtree removes the comment and every descendant, with the votes
// cast on them, and lowers the post's comment_count by the number of
// comments removed. It returns that number.
func (r *commentRepository) DeleteSubtree(ctx context.Context, comment *models.Comment) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := forUpdate(tx).Select("id").First(&post, comment.PostID).Error; err != nil {
			return err
		}

		if err := tx.Exec(commentSubtreeCTE+"DELETE FROM votes WHERE comment_id IN (SELECT id FROM subtree)", comment.ID).Error; err != nil {
			return err
		}

		res := tx.Exec(commentSubtreeCTE+"DELETE FROM comments WHERE id IN (SELECT id FROM subtree)", comment.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		deleted = res.RowsAffected

		return tx.Table("posts").Where("id = ?", comment.PostID).UpdateColumn("comment_count",
			gorm.Expr("CASE WHEN comment_count > ? THEN comment_count - ? ELSE 0 END", deleted, deleted)).Error
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
