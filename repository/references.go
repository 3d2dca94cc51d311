package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/blogcms/models"
	"github.com/cppla/blogcms/utils"
)

// ReferenceResolver fills the Category and Author of each post after the primary fetch.
type ReferenceResolver interface {
	ResolveReferences(ctx context.Context, posts []models.Post) error
}

// GormReferenceResolver joins posts to categories and users with one IN query per table.
type GormReferenceResolver struct {
	db *gorm.DB
}

// NewReferenceResolver creates a resolver reading from db.
func NewReferenceResolver(db *gorm.DB) *GormReferenceResolver {
	return &GormReferenceResolver{db: db}
}

// ResolveReferences sets Category and Author on every post. References that no longer
// exist are left nil rather than failing the read.
func (r *GormReferenceResolver) ResolveReferences(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	categoryIDs := make([]uint, 0, len(posts))
	authorIDs := make([]uint, 0, len(posts))
	for i := range posts {
		categoryIDs = append(categoryIDs, posts[i].CategoryID)
		authorIDs = append(authorIDs, posts[i].AuthorID)
	}

	var categories []models.Category
	if err := r.db.WithContext(ctx).Find(&categories, utils.Unique(categoryIDs)).Error; err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Omit("password_hash").Find(&users, utils.Unique(authorIDs)).Error; err != nil {
		return fmt.Errorf("load authors: %w", err)
	}

	categoryMap := make(map[uint]models.Category, len(categories))
	for _, c := range categories {
		categoryMap[c.ID] = c
	}
	userMap := make(map[uint]models.User, len(users))
	for _, u := range users {
		userMap[u.ID] = u
	}

	for i := range posts {
		posts[i].Category = nil
		posts[i].Author = nil
		if c, ok := categoryMap[posts[i].CategoryID]; ok {
			c := c
			posts[i].Category = &c
		}
		if u, ok := userMap[posts[i].AuthorID]; ok {
			u := u
			posts[i].Author = &u
		}
	}
	return nil
}
