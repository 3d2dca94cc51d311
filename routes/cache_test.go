package routes

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/blogcms/models"
)

const listKeyPrefix = "cache:posts:list:"

func setupCachedRouter(t *testing.T) (client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return client{t, setupRouterWith(t, rc)}, mr
}

func listKeys(mr *miniredis.Miniredis) []string {
	var keys []string
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, listKeyPrefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

type listPage struct {
	Data []postBody `json:"data"`
	Meta struct {
		Total int64 `json:"total"`
	} `json:"meta"`
}

func (c client) list(path string) listPage {
	c.t.Helper()
	rec := c.do(http.MethodGet, path, "", nil)
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
	var page listPage
	decode(c.t, rec, &page)
	return page
}

func (c client) category(token, name string) models.Category {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/categories", token, map[string]string{"name": name})
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
	var cat models.Category
	decode(c.t, rec, &cat)
	return cat
}

func (c client) publish(token, title string, categoryID uint) postBody {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/posts", token, map[string]interface{}{
		"title":      title,
		"content":    "<p>" + title + "</p>",
		"status":     "published",
		"categoryId": categoryID,
	})
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
	var p postBody
	decode(c.t, rec, &p)
	return p
}

func TestListCache_HitServesStoredBody(t *testing.T) {
	c, mr := setupCachedRouter(t)
	tok := c.register("U1", "u1@example.com")
	cat := c.category(tok, "General")
	c.publish(tok, "First <b>post</b>", cat.ID)

	miss := c.do(http.MethodGet, "/posts", "", nil)
	require.Equal(t, http.StatusOK, miss.Code)
	keys := listKeys(mr)
	require.Len(t, keys, 1)
	assert.Equal(t, 10*time.Minute, mr.TTL(keys[0]))

	hit := c.do(http.MethodGet, "/posts", "", nil)
	require.Equal(t, http.StatusOK, hit.Code)
	assert.JSONEq(t, miss.Body.String(), hit.Body.String())
	assert.Equal(t, miss.Header().Get("Content-Type"), hit.Header().Get("Content-Type"))

	// the second response must come from Redis, not the database
	require.NoError(t, mr.Set(keys[0], `{"data":[],"meta":{"total":42,"page":1,"limit":10}}`))
	assert.Equal(t, int64(42), c.list("/posts").Meta.Total)
}

func TestListCache_PostMutationsInvalidate(t *testing.T) {
	c, mr := setupCachedRouter(t)
	tok := c.register("U1", "u1@example.com")
	cat := c.category(tok, "General")
	first := c.publish(tok, "First", cat.ID)

	require.Equal(t, int64(1), c.list("/posts").Meta.Total)
	require.NotEmpty(t, listKeys(mr))

	second := c.publish(tok, "Second", cat.ID)
	assert.Empty(t, listKeys(mr), "create")
	assert.Equal(t, int64(2), c.list("/posts").Meta.Total)

	rec := c.do(http.MethodPatch, fmt.Sprintf("/posts/%d", first.ID), tok, map[string]string{"title": "First, edited"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, listKeys(mr), "update")
	var titles []string
	for _, p := range c.list("/posts").Data {
		titles = append(titles, p.Title)
	}
	assert.Contains(t, titles, "First, edited")

	require.NotEmpty(t, listKeys(mr))
	rec = c.do(http.MethodDelete, fmt.Sprintf("/posts/%d", second.ID), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, listKeys(mr), "delete")
	assert.Equal(t, int64(1), c.list("/posts").Meta.Total)
}

func TestListCache_CategoryMutationsInvalidate(t *testing.T) {
	c, mr := setupCachedRouter(t)
	tok := c.register("U1", "u1@example.com")
	general := c.category(tok, "General")
	c.publish(tok, "Hello", general.ID)

	// an unknown slug does not filter, so this page holds every post
	require.Equal(t, int64(1), c.list("/posts?category=news").Meta.Total)
	require.NotEmpty(t, listKeys(mr))

	news := c.category(tok, "News")
	assert.Empty(t, listKeys(mr), "create")
	assert.Equal(t, int64(0), c.list("/posts?category=news").Meta.Total)

	require.NotEmpty(t, listKeys(mr))
	rec := c.do(http.MethodPatch, fmt.Sprintf("/categories/%d", news.ID), tok, map[string]string{"slug": "updates"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, listKeys(mr), "update")
	assert.Equal(t, int64(1), c.list("/posts?category=news").Meta.Total)
	assert.Equal(t, int64(0), c.list("/posts?category=updates").Meta.Total)

	require.NotEmpty(t, listKeys(mr))
	rec = c.do(http.MethodDelete, fmt.Sprintf("/categories/%d", news.ID), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, listKeys(mr), "delete")
	assert.Equal(t, int64(1), c.list("/posts?category=updates").Meta.Total)
}

func TestListCache_SearchBypassesCache(t *testing.T) {
	c, mr := setupCachedRouter(t)
	tok := c.register("U1", "u1@example.com")
	cat := c.category(tok, "General")
	c.publish(tok, "Gophers", cat.ID)

	assert.Equal(t, int64(1), c.list("/posts?q=gopher").Meta.Total)
	assert.Equal(t, int64(1), c.list("/posts?search=GOPH").Meta.Total)
	assert.Empty(t, listKeys(mr))

	c.publish(tok, "More gophers", cat.ID)
	assert.Equal(t, int64(2), c.list("/posts?q=gopher").Meta.Total)
}

func TestLogoutRevocationUsesRedis(t *testing.T) {
	c, mr := setupCachedRouter(t)
	tok := c.register("U1", "u1@example.com")

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/auth/logout", tok, nil).Code)
	assert.True(t, mr.Exists("jwt:blacklist:"+tok))
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/auth/me", tok, nil).Code)
}
