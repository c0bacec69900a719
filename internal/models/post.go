// Package models contains data structures for the application's domain models.
package models

import "time"

// PostType classifies a forum post.
type PostType string

const (
	PostTypeDiscussion PostType = "discussion"
	PostTypeShowcase   PostType = "showcase"
	PostTypeTrade      PostType = "trade"
	PostTypeQuestion   PostType = "question"
	PostTypePoll       PostType = "poll"
	PostTypeEvent      PostType = "event"
)

// PostTypes lists every accepted post type in display order.
var PostTypes = []PostType{
	PostTypeDiscussion,
	PostTypeShowcase,
	PostTypeTrade,
	PostTypeQuestion,
	PostTypePoll,
	PostTypeEvent,
}

// Valid reports whether t is one of the known post types.
func (t PostType) Valid() bool {
	for _, known := range PostTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Post represents a forum post. Vote and comment counters are running
// aggregates maintained by the vote ledger and comment transactions.
type Post struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	User          *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CategoryID    uint           `gorm:"not null;index" json:"category_id"`
	Category      *Category      `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	GroupID       *uint          `gorm:"index" json:"group_id,omitempty"`
	Group         *InterestGroup `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	PostType      PostType       `gorm:"type:varchar(20);not null;default:'discussion';index" json:"post_type"`
	Title         string         `gorm:"size:300;not null" json:"title"`
	Content       string         `gorm:"type:text;not null" json:"content"`
	UpvoteCount   int            `gorm:"not null;default:0" json:"upvote_count"`
	DownvoteCount int            `gorm:"not null;default:0" json:"downvote_count"`
	CommentCount  int            `gorm:"not null;default:0" json:"comment_count"`
	HotScore      float64        `gorm:"not null;default:0;index" json:"hot_score"`
	IsPinned      bool           `gorm:"not null;default:false" json:"is_pinned"`
	IsLocked      bool           `gorm:"not null;default:false" json:"is_locked"`
	CreatedAt     time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`

	// Viewer decorations, filled per request and never persisted.
	UserVote    *int   `gorm:"-" json:"user_vote"`
	IsSaved     bool   `gorm:"-" json:"is_saved"`
	ContentHTML string `gorm:"-" json:"content_html,omitempty"`
}

// NetScore is upvotes minus downvotes.
func (p *Post) NetScore() int {
	return p.UpvoteCount - p.DownvoteCount
}
