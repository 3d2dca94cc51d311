package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cppla/blogcms/config"
	"github.com/cppla/blogcms/models"
	"github.com/cppla/blogcms/repository"
)

// CreatePostInput is a validated create payload.
type CreatePostInput struct {
	Title         string
	Content       string
	Excerpt       string
	Tags          []string
	Status        string
	FeaturedImage string
	CategoryID    uint
}

// Validate checks required fields and the status value.
func (in CreatePostInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return newError(ErrValidation, "title cannot be empty")
	}
	if strings.TrimSpace(in.Content) == "" {
		return newError(ErrValidation, "content cannot be empty")
	}
	if in.CategoryID == 0 {
		return newError(ErrValidation, "category is required")
	}
	if in.Status != "" && !models.ValidStatus(in.Status) {
		return newError(ErrValidation, "status must be draft or published")
	}
	return nil
}

// PostPatch is a partial update; nil fields are left untouched. The author cannot be changed.
type PostPatch struct {
	Title         *string
	Content       *string
	Excerpt       *string
	Tags          *[]string
	Status        *string
	FeaturedImage *string
	CategoryID    *uint
}

// Validate rejects present fields that would break a post's invariants.
func (p PostPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return newError(ErrValidation, "title cannot be empty")
	}
	if p.Content != nil && strings.TrimSpace(*p.Content) == "" {
		return newError(ErrValidation, "content cannot be empty")
	}
	if p.CategoryID != nil && *p.CategoryID == 0 {
		return newError(ErrValidation, "category cannot be empty")
	}
	if p.Status != nil && !models.ValidStatus(*p.Status) {
		return newError(ErrValidation, "status must be draft or published")
	}
	return nil
}

func (p PostPatch) apply(post *models.Post) {
	if p.Title != nil {
		post.Title = *p.Title
	}
	if p.Content != nil {
		post.Content = *p.Content
	}
	if p.Excerpt != nil {
		post.Excerpt = *p.Excerpt
	}
	if p.Tags != nil {
		post.Tags = append([]string{}, (*p.Tags)...)
	}
	if p.Status != nil {
		post.Status = *p.Status
	}
	if p.FeaturedImage != nil {
		post.FeaturedImage = *p.FeaturedImage
	}
	if p.CategoryID != nil {
		post.CategoryID = *p.CategoryID
	}
}

// PostFilter is the public listing query. Category may be a category id or slug.
type PostFilter struct {
	Query    string
	Category string
	Page     int
	Limit    int
}

// PageMeta describes the page returned alongside the data.
type PageMeta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// Page is one page of posts.
type Page struct {
	Data []models.Post `json:"data"`
	Meta PageMeta      `json:"meta"`
}

// PostService enforces post ownership and shapes post listings.
type PostService struct {
	posts        PostStore
	categories   CategoryStore
	media        URLResolver
	defaultLimit int
	maxLimit     int
	log          *zap.Logger
}

// NewPostService wires the service; pagination defaults come from cfg.
func NewPostService(posts PostStore, categories CategoryStore, media URLResolver, cfg config.AppConfig, log *zap.Logger) *PostService {
	return &PostService{
		posts:        posts,
		categories:   categories,
		media:        media,
		defaultLimit: cfg.DefaultPageSize,
		maxLimit:     cfg.MaxPageSize,
		log:          log,
	}
}

// Create stores a new post owned by authorID. Status defaults to draft.
func (s *PostService) Create(ctx context.Context, in CreatePostInput, authorID uint) (*models.Post, error) {
	if authorID == 0 {
		return nil, newError(ErrUnauthorized, "unauthorized")
	}
	if err := s.requireCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:         in.Title,
		Content:       in.Content,
		Excerpt:       in.Excerpt,
		Tags:          append([]string{}, in.Tags...),
		Status:        in.Status,
		FeaturedImage: in.FeaturedImage,
		CategoryID:    in.CategoryID,
		AuthorID:      authorID,
	}
	if post.Status == "" {
		post.Status = models.StatusDraft
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	s.log.Info("post created", zap.Uint("post_id", post.ID), zap.Uint("author_id", authorID), zap.String("status", post.Status))
	return s.present(post), nil
}

// ListPublished returns published posts matching the filter, newest first. A category
// that does not resolve to an existing record is ignored rather than rejected.
func (s *PostService) ListPublished(ctx context.Context, f PostFilter) (*Page, error) {
	page, limit := s.pagination(f.Page, f.Limit)

	categoryID, err := s.resolveCategoryFilter(ctx, f.Category)
	if err != nil {
		return nil, err
	}

	posts, total, err := s.posts.List(ctx, repository.PostQuery{
		Status:     models.StatusPublished,
		Title:      strings.TrimSpace(f.Query),
		CategoryID: categoryID,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	return s.page(posts, total, page, limit), nil
}

// ListAll lists posts of every status. Administrators see all authors; everyone else
// sees only their own posts.
func (s *PostService) ListAll(ctx context.Context, viewer Viewer, page, limit int) (*Page, error) {
	if !viewer.Authenticated() {
		return nil, newError(ErrUnauthorized, "unauthorized")
	}
	page, limit = s.pagination(page, limit)

	q := repository.PostQuery{Page: page, Limit: limit}
	if !viewer.Admin {
		q.AuthorID = viewer.UserID
	}
	posts, total, err := s.posts.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.page(posts, total, page, limit), nil
}

// GetByID returns a post. Drafts are only visible to their author and administrators;
// anyone else gets NotFound so draft ids are not disclosed.
func (s *PostService) GetByID(ctx context.Context, id uint, viewer Viewer) (*models.Post, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Status != models.StatusPublished && !viewer.Admin && post.AuthorID != viewer.UserID {
		return nil, newError(ErrNotFound, "post not found")
	}
	return s.present(post), nil
}

// Update applies patch to the post if callerID is its author.
func (s *PostService) Update(ctx context.Context, id uint, patch PostPatch, callerID uint) (*models.Post, error) {
	post, err := s.authorize(ctx, id, callerID, "update")
	if err != nil {
		return nil, err
	}
	if patch.CategoryID != nil && *patch.CategoryID != post.CategoryID {
		if err := s.requireCategory(ctx, *patch.CategoryID); err != nil {
			return nil, err
		}
	}

	patch.apply(post)
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	s.log.Info("post updated", zap.Uint("post_id", post.ID), zap.Uint("author_id", callerID))
	return s.present(post), nil
}

// Delete permanently removes the post if callerID is its author.
func (s *PostService) Delete(ctx context.Context, id uint, callerID uint) error {
	if _, err := s.authorize(ctx, id, callerID, "delete"); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, "post not found")
		}
		return err
	}
	s.log.Info("post deleted", zap.Uint("post_id", id), zap.Uint("author_id", callerID))
	return nil
}

// authorize loads the post and checks authorship: NotFound first, then Forbidden.
func (s *PostService) authorize(ctx context.Context, id, callerID uint, action string) (*models.Post, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerID == 0 || post.AuthorID != callerID {
		s.log.Warn("post ownership check failed",
			zap.String("action", action),
			zap.Uint("post_id", id),
			zap.Uint("author_id", post.AuthorID),
			zap.Uint("caller_id", callerID),
		)
		return nil, newError(ErrForbidden, "you can only %s your own posts", action)
	}
	return post, nil
}

func (s *PostService) load(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "post not found")
		}
		return nil, err
	}
	return post, nil
}

func (s *PostService) requireCategory(ctx context.Context, id uint) error {
	if _, err := s.categories.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, "category not found")
		}
		return err
	}
	return nil
}

// resolveCategoryFilter maps an id or slug to a category id; 0 means "no filter".
func (s *PostService) resolveCategoryFilter(ctx context.Context, ref string) (uint, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, nil
	}

	var (
		c   *models.Category
		err error
	)
	if id, perr := strconv.ParseUint(ref, 10, 64); perr == nil && id > 0 {
		c, err = s.categories.FindByID(ctx, uint(id))
	} else {
		c, err = s.categories.FindBySlug(ctx, ref)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Debug("ignoring unresolvable category filter", zap.String("category", ref))
			return 0, nil
		}
		return 0, err
	}
	return c.ID, nil
}

func (s *PostService) pagination(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.defaultLimit
	}
	if s.maxLimit > 0 && limit > s.maxLimit {
		limit = s.maxLimit
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

func (s *PostService) page(posts []models.Post, total int64, page, limit int) *Page {
	data := make([]models.Post, len(posts))
	for i := range posts {
		data[i] = *s.present(&posts[i])
	}
	return &Page{Data: data, Meta: PageMeta{Total: total, Page: page, Limit: limit}}
}

// present prepares a post for the caller: absolute image URL and a non-nil tag list.
// It works on a copy so the stored relative path is never written back.
func (s *PostService) present(post *models.Post) *models.Post {
	out := *post
	out.FeaturedImage = s.media.Resolve(post.FeaturedImage)
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return &out
}
