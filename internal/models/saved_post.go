package models

import "time"

// SavedPost is a user's bookmark on a post.
type SavedPost struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_saved_posts_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_saved_posts_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
