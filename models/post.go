package models

import "time"

// Post statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Post is a blog article. AuthorID is fixed at creation; Category and Author are filled
// by the repository's reference join and are never written through the post.
type Post struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	Excerpt       string    `gorm:"type:text" json:"excerpt,omitempty"`
	Tags          []string  `gorm:"type:text;serializer:json" json:"tags"`
	Status        string    `gorm:"size:16;not null;default:draft;index" json:"status"`
	FeaturedImage string    `gorm:"size:1024" json:"featuredImage,omitempty"`
	CategoryID    uint      `gorm:"index;not null" json:"categoryId"`
	AuthorID      uint      `gorm:"index;not null" json:"authorId"`
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Category      *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Author        *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

// ValidStatus reports whether s is a known post status.
func ValidStatus(s string) bool {
	return s == StatusDraft || s == StatusPublished
}
