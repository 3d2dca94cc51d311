package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/cppla/blogcms/models"
	"github.com/cppla/blogcms/repository"
	"github.com/cppla/blogcms/utils"
)

// CategoryInput creates a category; an empty slug is derived from the name.
type CategoryInput struct {
	Name string
	Slug string
}

// CategoryPatch is a partial category update.
type CategoryPatch struct {
	Name *string
	Slug *string
}

// CategoryService is plain CRUD over categories.
type CategoryService struct {
	categories CategoryStore
	posts      PostStore
	log        *zap.Logger
}

func NewCategoryService(categories CategoryStore, posts PostStore, log *zap.Logger) *CategoryService {
	return &CategoryService{categories: categories, posts: posts, log: log}
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	return s.categories.List(ctx)
}

func (s *CategoryService) Get(ctx context.Context, id uint) (*models.Category, error) {
	c, err := s.categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "category not found")
		}
		return nil, err
	}
	return c, nil
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, newError(ErrValidation, "name cannot be empty")
	}
	slug := utils.Slugify(in.Slug)
	if slug == "" {
		slug = utils.Slugify(name)
	}
	if slug == "" {
		return nil, newError(ErrValidation, "slug must contain letters or digits")
	}
	if err := s.ensureSlugFree(ctx, slug, 0); err != nil {
		return nil, err
	}

	c := &models.Category{Name: name, Slug: slug}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, slugConflict(err, slug)
	}
	s.log.Info("category created", zap.Uint("category_id", c.ID), zap.String("slug", c.Slug))
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id uint, patch CategoryPatch) (*models.Category, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, newError(ErrValidation, "name cannot be empty")
		}
		c.Name = name
	}
	if patch.Slug != nil {
		slug := utils.Slugify(*patch.Slug)
		if slug == "" {
			slug = utils.Slugify(c.Name)
		}
		if slug == "" {
			return nil, newError(ErrValidation, "slug must contain letters or digits")
		}
		if err := s.ensureSlugFree(ctx, slug, c.ID); err != nil {
			return nil, err
		}
		c.Slug = slug
	}
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, slugConflict(err, c.Slug)
	}
	return c, nil
}

// Delete removes a category that no post references.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	n, err := s.posts.CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return newError(ErrConflict, "category is used by %d posts", n)
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, "category not found")
		}
		return err
	}
	s.log.Info("category deleted", zap.Uint("category_id", id))
	return nil
}

func (s *CategoryService) ensureSlugFree(ctx context.Context, slug string, selfID uint) error {
	existing, err := s.categories.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return newError(ErrConflict, "category slug %q already exists", slug)
	}
	return nil
}

// slugConflict maps a unique index hit that slipped past ensureSlugFree to Conflict.
func slugConflict(err error, slug string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return newError(ErrConflict, "category slug %q already exists", slug)
	}
	return err
}
