package repository

import (
	"context"

	"collectorhub/internal/models"

	"gorm.io/gorm"
)

// FeedQuery selects one page of a feed. Pinned posts lead every ordering.
type FeedQuery struct {
	Sort models.FeedSort
	// Scope restricts the feed to the viewer's memberships when set.
	Scope      *models.MembershipSet
	CategoryID *uint
	GroupID    *uint
	PostType   *models.PostType
	Cursor     *models.FeedCursor
	Limit      int
}

// ListFeed returns at most q.Limit posts matching q in sort order.
func (r *postRepository) ListFeed(ctx context.Context, q FeedQuery) ([]*models.Post, error) {
	if q.Scope != nil && q.Scope.Empty() {
		return []*models.Post{}, nil
	}

	query := r.db.WithContext(ctx).Model(&models.Post{}).Preload("User")
	query = applyFeedScope(query, q)
	query = applyFeedCursor(query, q.Sort, q.Cursor)
	query = applyFeedOrder(query, q.Sort)

	var posts []*models.Post
	if err := query.Limit(q.Limit).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func applyFeedScope(db *gorm.DB, q FeedQuery) *gorm.DB {
	if s := q.Scope; s != nil {
		switch {
		case len(s.CategoryIDs) > 0 && len(s.GroupIDs) > 0:
			db = db.Where("(category_id IN ? OR group_id IN ?)", s.CategoryIDs, s.GroupIDs)
		case len(s.CategoryIDs) > 0:
			db = db.Where("category_id IN ?", s.CategoryIDs)
		default:
			db = db.Where("group_id IN ?", s.GroupIDs)
		}
	}
	if q.CategoryID != nil {
		db = db.Where("category_id = ?", *q.CategoryID)
	}
	if q.GroupID != nil {
		db = db.Where("group_id = ?", *q.GroupID)
	}
	if q.PostType != nil {
		db = db.Where("post_type = ?", *q.PostType)
	}
	return db
}

// applyFeedCursor keeps rows strictly after the cursor in sort order. A
// cursor from a pinned row continues through the remaining pinned posts
// and then every unpinned one.
func applyFeedCursor(db *gorm.DB, sort models.FeedSort, cursor *models.FeedCursor) *gorm.DB {
	if cursor == nil {
		return db
	}
	var column string
	var key interface{}
	switch sort {
	case models.FeedSortNew:
		column, key = "created_at", cursor.CreatedAt
	case models.FeedSortTop:
		column, key = "(upvote_count - downvote_count)", cursor.NetScore
	default:
		column, key = "hot_score", cursor.HotScore
	}
	if cursor.Pinned {
		return db.Where("((is_pinned = ? AND "+column+" < ?) OR is_pinned = ?)", true, key, false)
	}
	return db.Where("is_pinned = ? AND "+column+" < ?", false, key)
}

func applyFeedOrder(db *gorm.DB, sort models.FeedSort) *gorm.DB {
	db = db.Order("is_pinned DESC")
	switch sort {
	case models.FeedSortNew:
		return db.Order("created_at DESC").Order("id DESC")
	case models.FeedSortTop:
		return db.Order("(upvote_count - downvote_count) DESC").Order("created_at DESC").Order("id DESC")
	default:
		return db.Order("hot_score DESC").Order("created_at DESC").Order("id DESC")
	}
}
