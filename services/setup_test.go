package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cppla/blogcms/config"
	"github.com/cppla/blogcms/media"
	"github.com/cppla/blogcms/models"
	"github.com/cppla/blogcms/repository"
	"github.com/cppla/blogcms/services"
	"github.com/cppla/blogcms/utils"
)

const testBaseURL = "http://localhost:5000"

type harness struct {
	ctx        context.Context
	cfg        config.AppConfig
	postRepo   *repository.PostRepository
	catRepo    *repository.CategoryRepository
	userRepo   *repository.UserRepository
	posts      *services.PostService
	categories *services.CategoryService
	auth       *services.AuthService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.AppConfig{
		DBDriver:        "sqlite",
		DatabaseURI:     ":memory:",
		LogLevel:        "silent",
		BaseURL:         testBaseURL,
		DefaultPageSize: 10,
		MaxPageSize:     100,
		AdminEmails:     []string{"admin@example.com"},
	}
	db, err := config.OpenDatabase(cfg, zap.NewNop(), &models.User{}, &models.Category{}, &models.Post{})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	h := &harness{
		ctx:      context.Background(),
		cfg:      cfg,
		postRepo: repository.NewPostRepository(db, repository.NewReferenceResolver(db)),
		catRepo:  repository.NewCategoryRepository(db),
		userRepo: repository.NewUserRepository(db),
	}
	h.posts = services.NewPostService(h.postRepo, h.catRepo, media.NewResolver(cfg.BaseURL), cfg, zap.NewNop())
	h.categories = services.NewCategoryService(h.catRepo, h.postRepo, zap.NewNop())
	h.auth = services.NewAuthService(h.userRepo, utils.NewTokenManager("test-secret", time.Hour), utils.NewTokenBlacklist(nil), cfg.IsReservedEmail, zap.NewNop())
	return h
}

func (h *harness) user(t *testing.T, name, email string) *models.User {
	t.Helper()
	u, err := h.auth.Register(h.ctx, services.RegisterInput{Name: name, Email: email, Password: "password1"})
	require.NoError(t, err)
	return u
}

func (h *harness) category(t *testing.T, name string) *models.Category {
	t.Helper()
	c, err := h.categories.Create(h.ctx, services.CategoryInput{Name: name})
	require.NoError(t, err)
	return c
}

func (h *harness) post(t *testing.T, title, status string, cat *models.Category, author *models.User) *models.Post {
	t.Helper()
	p, err := h.posts.Create(h.ctx, services.CreatePostInput{
		Title:      title,
		Content:    "<p>content of " + title + "</p>",
		Status:     status,
		CategoryID: cat.ID,
	}, author.ID)
	require.NoError(t, err)
	return p
}

func viewerOf(u *models.User) services.Viewer {
	return services.Viewer{UserID: u.ID, Email: u.Email}
}

func strPtr(s string) *string { return &s }
