package models

import "time"

// Category is a top-level collecting interest (coins, stamps, vinyl, ...).
type Category struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:120;not null" json:"name"`
	Slug        string          `gorm:"size:48;not null;uniqueIndex" json:"slug"`
	Description string          `gorm:"type:text" json:"description"`
	Groups      []InterestGroup `gorm:"foreignKey:CategoryID" json:"groups,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// InterestGroup is a narrower community nested under a category.
type InterestGroup struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CategoryID  uint      `gorm:"not null;index" json:"category_id"`
	Name        string    `gorm:"size:120;not null" json:"name"`
	Slug        string    `gorm:"size:48;not null;uniqueIndex" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (InterestGroup) TableName() string {
	return "interest_groups"
}
