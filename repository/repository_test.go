package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/blogcms/config"
	"github.com/cppla/blogcms/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := config.AppConfig{DBDriver: "sqlite", DatabaseURI: ":memory:", LogLevel: "silent"}
	db, err := config.OpenDatabase(cfg, zap.NewNop(), &models.User{}, &models.Category{}, &models.Post{})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type fixture struct {
	ctx    context.Context
	posts  *PostRepository
	users  *UserRepository
	cats   *CategoryRepository
	alice  *models.User
	bob    *models.User
	tech   *models.Category
	travel *models.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	f := &fixture{
		ctx:   context.Background(),
		posts: NewPostRepository(db, NewReferenceResolver(db)),
		users: NewUserRepository(db),
		cats:  NewCategoryRepository(db),
	}
	f.alice = &models.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "x"}
	f.bob = &models.User{Name: "Bob", Email: "bob@example.com", PasswordHash: "x"}
	require.NoError(t, f.users.Create(f.ctx, f.alice))
	require.NoError(t, f.users.Create(f.ctx, f.bob))
	f.tech = &models.Category{Name: "Tech", Slug: "tech"}
	f.travel = &models.Category{Name: "Travel", Slug: "travel"}
	require.NoError(t, f.cats.Create(f.ctx, f.tech))
	require.NoError(t, f.cats.Create(f.ctx, f.travel))
	return f
}

func (f *fixture) post(t *testing.T, title, status string, cat *models.Category, author *models.User) *models.Post {
	t.Helper()
	p := &models.Post{Title: title, Content: "body", Status: status, CategoryID: cat.ID, AuthorID: author.ID, Tags: []string{"a", "a", "b"}}
	require.NoError(t, f.posts.Create(f.ctx, p))
	return p
}

func TestPostRepository_CreateResolvesReferences(t *testing.T) {
	f := newFixture(t)
	p := f.post(t, "Hello", models.StatusDraft, f.tech, f.alice)

	require.NotZero(t, p.ID)
	require.NotNil(t, p.Category)
	require.NotNil(t, p.Author)
	assert.Equal(t, "Tech", p.Category.Name)
	assert.Equal(t, "Alice", p.Author.Name)
	assert.Empty(t, p.Author.PasswordHash)

	got, err := f.posts.FindByID(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a", "b"}, got.Tags)
	assert.Equal(t, "alice@example.com", got.Author.Email)
}

func TestPostRepository_FindByIDNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.posts.FindByID(f.ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostRepository_ListFilters(t *testing.T) {
	f := newFixture(t)
	f.post(t, "Hello World", models.StatusPublished, f.tech, f.alice)
	f.post(t, "Draft thoughts", models.StatusDraft, f.tech, f.alice)
	f.post(t, "Trip report", models.StatusPublished, f.travel, f.bob)

	posts, total, err := f.posts.List(f.ctx, PostQuery{Status: models.StatusPublished, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, p := range posts {
		assert.Equal(t, models.StatusPublished, p.Status)
	}

	posts, total, err = f.posts.List(f.ctx, PostQuery{Title: "WORLD", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "Hello World", posts[0].Title)

	_, total, err = f.posts.List(f.ctx, PostQuery{CategoryID: f.travel.ID, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = f.posts.List(f.ctx, PostQuery{AuthorID: f.alice.ID, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestPostRepository_ListTitleWildcardsAreLiteral(t *testing.T) {
	f := newFixture(t)
	f.post(t, "100% uptime", models.StatusPublished, f.tech, f.alice)
	f.post(t, "1000 users", models.StatusPublished, f.tech, f.alice)
	f.post(t, "snake_case", models.StatusPublished, f.tech, f.alice)
	f.post(t, "snakeXcase", models.StatusPublished, f.tech, f.alice)

	posts, total, err := f.posts.List(f.ctx, PostQuery{Title: "100%", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "100% uptime", posts[0].Title)

	posts, total, err = f.posts.List(f.ctx, PostQuery{Title: "e_c", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "snake_case", posts[0].Title)
}

func TestPostRepository_ListNewestFirstAndPaged(t *testing.T) {
	f := newFixture(t)
	for i := 1; i <= 5; i++ {
		f.post(t, fmt.Sprintf("post %d", i), models.StatusPublished, f.tech, f.alice)
	}

	posts, total, err := f.posts.List(f.ctx, PostQuery{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, posts, 2)
	assert.Equal(t, "post 5", posts[0].Title)
	assert.Equal(t, "post 4", posts[1].Title)

	posts, _, err = f.posts.List(f.ctx, PostQuery{Page: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "post 1", posts[0].Title)

	posts, total, err = f.posts.List(f.ctx, PostQuery{Page: 4, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Empty(t, posts)
	assert.NotNil(t, posts)
}

func TestPostRepository_UpdateNeverChangesAuthor(t *testing.T) {
	f := newFixture(t)
	p := f.post(t, "Original", models.StatusDraft, f.tech, f.alice)

	p.Title = "Changed"
	p.Excerpt = ""
	p.CategoryID = f.travel.ID
	p.AuthorID = f.bob.ID
	require.NoError(t, f.posts.Update(f.ctx, p))

	got, err := f.posts.FindByID(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Changed", got.Title)
	assert.Equal(t, f.travel.ID, got.CategoryID)
	assert.Equal(t, "Travel", got.Category.Name)
	assert.Equal(t, f.alice.ID, got.AuthorID)
}

func TestPostRepository_DeleteAndCount(t *testing.T) {
	f := newFixture(t)
	p := f.post(t, "Gone soon", models.StatusPublished, f.tech, f.alice)
	f.post(t, "Stays", models.StatusPublished, f.tech, f.alice)

	n, err := f.posts.CountByCategory(f.ctx, f.tech.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, f.posts.Delete(f.ctx, p.ID))
	assert.ErrorIs(t, f.posts.Delete(f.ctx, p.ID), ErrNotFound)

	_, err = f.posts.FindByID(f.ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReferenceResolver_MissingReferencesStayNil(t *testing.T) {
	f := newFixture(t)
	p := f.post(t, "Orphan", models.StatusPublished, f.tech, f.alice)
	require.NoError(t, f.cats.Delete(f.ctx, f.tech.ID))

	got, err := f.posts.FindByID(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Category)
	assert.NotNil(t, got.Author)
}

func TestCategoryRepository(t *testing.T) {
	f := newFixture(t)

	list, err := f.cats.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Tech", list[0].Name)

	c, err := f.cats.FindBySlug(f.ctx, "travel")
	require.NoError(t, err)
	assert.Equal(t, f.travel.ID, c.ID)

	_, err = f.cats.FindBySlug(f.ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, f.cats.Create(f.ctx, &models.Category{Name: "Dup", Slug: "tech"}), ErrDuplicate)

	f.travel.Slug = "tech"
	assert.ErrorIs(t, f.cats.Update(f.ctx, f.travel), ErrDuplicate)
	assert.ErrorIs(t, f.cats.Delete(f.ctx, 999), ErrNotFound)
}

func TestUserRepository_FindByEmailCaseInsensitive(t *testing.T) {
	f := newFixture(t)

	u, err := f.users.FindByEmail(f.ctx, "  ALICE@example.com ")
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, u.ID)

	_, err = f.users.FindByEmail(f.ctx, "carol@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	f := newFixture(t)

	err := f.users.Create(f.ctx, &models.User{Name: "Alice 2", Email: "alice@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%hello%", containsPattern("HeLLo"))
	assert.Equal(t, "%100!%%", containsPattern("100%"))
	assert.Equal(t, "%a!_b!!%", containsPattern("a_b!"))
}
