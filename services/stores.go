package services

import (
	"context"

	"github.com/cppla/blogcms/models"
	"github.com/cppla/blogcms/repository"
)

// PostStore is the persistence the post service needs; *repository.PostRepository implements it.
type PostStore interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, q repository.PostQuery) ([]models.Post, int64, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	CountByCategory(ctx context.Context, categoryID uint) (int64, error)
}

// CategoryStore is implemented by *repository.CategoryRepository.
type CategoryStore interface {
	List(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id uint) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	Create(ctx context.Context, c *models.Category) error
	Update(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id uint) error
}

// UserStore is implemented by *repository.UserRepository.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uint) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
}

// URLResolver turns stored media paths into client URLs; *media.Resolver implements it.
type URLResolver interface {
	Resolve(path string) string
}
