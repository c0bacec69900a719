package models

import "time"

// Comment is a reply on a post. ParentID is nil for top-level comments;
// depth is never stored and is derived when the tree is built.
type Comment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PostID        uint      `gorm:"not null;index" json:"post_id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	User          *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ParentID      *uint     `gorm:"index" json:"parent_id"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	UpvoteCount   int       `gorm:"not null;default:0" json:"upvote_count"`
	DownvoteCount int       `gorm:"not null;default:0" json:"downvote_count"`
	CreatedAt     time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
