package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/blogcms/models"
)

// PostQuery composes a post listing. Zero values disable the corresponding filter.
type PostQuery struct {
	Status     string
	Title      string
	CategoryID uint
	AuthorID   uint
	Page       int
	Limit      int
}

// PostRepository owns post records.
type PostRepository struct {
	db   *gorm.DB
	refs ReferenceResolver
}

// NewPostRepository creates a PostRepository that resolves references through refs.
func NewPostRepository(db *gorm.DB, refs ReferenceResolver) *PostRepository {
	return &PostRepository{db: db, refs: refs}
}

// Create inserts a new post. Associations are never written through the post.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return r.resolveOne(ctx, post)
}

// FindByID loads a post with its references resolved.
func (r *PostRepository) FindByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, notFound(err)
	}
	if err := r.resolveOne(ctx, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// List returns one page of posts matching q, newest first, and the total match count.
func (r *PostRepository) List(ctx context.Context, q PostQuery) ([]models.Post, int64, error) {
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	query := r.db.WithContext(ctx).Model(&models.Post{})
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.Title != "" {
		query = query.Where("LOWER(title) LIKE ? ESCAPE '!'", containsPattern(q.Title))
	}
	if q.CategoryID != 0 {
		query = query.Where("category_id = ?", q.CategoryID)
	}
	if q.AuthorID != 0 {
		query = query.Where("author_id = ?", q.AuthorID)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	posts := []models.Post{}
	if err := query.Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * limit).Limit(limit).Find(&posts).Error; err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}

	if err := r.refs.ResolveReferences(ctx, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// mutableColumns are the only columns Update writes; author_id and created_at never change.
var mutableColumns = []string{"title", "content", "excerpt", "tags", "status", "featured_image", "category_id"}

// Update writes the mutable columns of post, zero values included.
func (r *PostRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Model(post).Select(mutableColumns).Updates(post).Error; err != nil {
		return fmt.Errorf("update post %d: %w", post.ID, err)
	}
	return r.resolveOne(ctx, post)
}

// Delete removes the post permanently.
func (r *PostRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete post %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByCategory returns how many posts reference the category.
func (r *PostRepository) CountByCategory(ctx context.Context, categoryID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("category_id = ?", categoryID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count posts in category %d: %w", categoryID, err)
	}
	return n, nil
}

func (r *PostRepository) resolveOne(ctx context.Context, post *models.Post) error {
	batch := []models.Post{*post}
	if err := r.refs.ResolveReferences(ctx, batch); err != nil {
		return err
	}
	*post = batch[0]
	return nil
}
