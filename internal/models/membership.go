package models

import "time"

// CategoryMembership records that a user follows a category.
type CategoryMembership struct {
	CategoryID uint      `gorm:"primaryKey;autoIncrement:false" json:"category_id"`
	UserID     uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// GroupMembership records that a user joined an interest group.
type GroupMembership struct {
	GroupID   uint      `gorm:"primaryKey;autoIncrement:false" json:"group_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MembershipSet is the scope of a viewer's personal feed.
type MembershipSet struct {
	CategoryIDs []uint `json:"category_ids"`
	GroupIDs    []uint `json:"group_ids"`
}

// Empty reports whether the viewer belongs to nothing.
func (m MembershipSet) Empty() bool {
	return len(m.CategoryIDs) == 0 && len(m.GroupIDs) == 0
}
