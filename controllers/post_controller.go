package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/blogcms/config"
	"github.com/cppla/blogcms/media"
	"github.com/cppla/blogcms/services"
	"github.com/cppla/blogcms/utils"
)

const postListCachePrefix = "cache:posts:list:"

// idRef is a record reference that clients send either as a number or a numeric string.
type idRef uint

func (r *idRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*r = 0
		return nil
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*r = idRef(id)
	return nil
}

// postRequest is the body of create and update. Absent fields stay nil.
type postRequest struct {
	Title         *string   `json:"title"`
	Content       *string   `json:"content"`
	Excerpt       *string   `json:"excerpt"`
	Tags          *[]string `json:"tags"`
	Status        *string   `json:"status"`
	FeaturedImage *string   `json:"featuredImage"`
	Category      *idRef    `json:"category"`
	CategoryID    *idRef    `json:"categoryId"`
}

func (r postRequest) categoryID() *uint {
	ref := r.Category
	if ref == nil {
		ref = r.CategoryID
	}
	if ref == nil {
		return nil
	}
	id := uint(*ref)
	return &id
}

// patch converts the request into a sanitized partial update.
func (r postRequest) patch() services.PostPatch {
	p := services.PostPatch{
		Status:        trimmed(r.Status),
		FeaturedImage: trimmed(r.FeaturedImage),
		CategoryID:    r.categoryID(),
		Tags:          r.Tags,
	}
	if r.Title != nil {
		t := strings.TrimSpace(*r.Title)
		p.Title = &t
	}
	if r.Content != nil {
		c := utils.Sanitize(*r.Content)
		p.Content = &c
	}
	if r.Excerpt != nil {
		e := strings.TrimSpace(utils.SanitizeText(*r.Excerpt))
		p.Excerpt = &e
	}
	if p.Tags != nil {
		tags := cleanTags(*p.Tags)
		p.Tags = &tags
	}
	return p
}

func (r postRequest) createInput() services.CreatePostInput {
	p := r.patch()
	in := services.CreatePostInput{}
	if p.Title != nil {
		in.Title = *p.Title
	}
	if p.Content != nil {
		in.Content = *p.Content
	}
	if p.Excerpt != nil {
		in.Excerpt = *p.Excerpt
	}
	if p.Tags != nil {
		in.Tags = *p.Tags
	}
	if p.Status != nil {
		in.Status = *p.Status
	}
	if p.FeaturedImage != nil {
		in.FeaturedImage = *p.FeaturedImage
	}
	if p.CategoryID != nil {
		in.CategoryID = *p.CategoryID
	}
	return in
}

// PostController exposes the post endpoints.
type PostController struct {
	posts   *services.PostService
	storage *media.Storage
	cache   *utils.Cache
	cfg     config.AppConfig
	log     *zap.Logger
}

func NewPostController(posts *services.PostService, storage *media.Storage, cache *utils.Cache, cfg config.AppConfig, log *zap.Logger) *PostController {
	return &PostController{posts: posts, storage: storage, cache: cache, cfg: cfg, log: log}
}

// ListPosts returns a page of published posts.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, limit := parsePagination(ctx)
	q := strings.TrimSpace(ctx.Query("q"))
	if q == "" {
		q = strings.TrimSpace(ctx.Query("search"))
	}
	category := strings.TrimSpace(ctx.Query("category"))

	// Search results are not cached to avoid key explosion
	cacheKey := ""
	if q == "" {
		cacheKey = fmt.Sprintf("%scat=%s:page=%d:limit=%d", postListCachePrefix, category, page, limit)
		if b, ok := p.cache.GetBytes(ctx.Request.Context(), cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
			return
		}
	}

	result, err := p.posts.ListPublished(ctx.Request.Context(), services.PostFilter{
		Query:    q,
		Category: category,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		respondError(ctx, p.log, err)
		return
	}
	if cacheKey != "" {
		p.cache.SetJSON(ctx.Request.Context(), cacheKey, result, 10*time.Minute)
	}
	utils.Success(ctx, http.StatusOK, result)
}

// ListAllPosts lists posts of every status for the caller.
func (p *PostController) ListAllPosts(ctx *gin.Context) {
	page, limit := parsePagination(ctx)
	result, err := p.posts.ListAll(ctx.Request.Context(), viewerFrom(ctx, p.cfg), page, limit)
	if err != nil {
		respondError(ctx, p.log, err)
		return
	}
	utils.Success(ctx, http.StatusOK, result)
}

// GetPost returns a single post.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	post, err := p.posts.GetByID(ctx.Request.Context(), id, viewerFrom(ctx, p.cfg))
	if err != nil {
		respondError(ctx, p.log, err)
		return
	}
	utils.Success(ctx, http.StatusOK, post)
}

// CreatePost stores a post owned by the caller. The body is JSON or multipart with an
// optional featuredImage file.
func (p *PostController) CreatePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	req, err := p.bindPostRequest(ctx)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	in := req.createInput()
	if err := in.Validate(); err != nil {
		respondError(ctx, p.log, err)
		return
	}

	uploaded, err := p.saveFeaturedImage(ctx)
	if err != nil {
		respondError(ctx, p.log, err)
		return
	}
	if uploaded != "" {
		in.FeaturedImage = uploaded
	}

	post, err := p.posts.Create(ctx.Request.Context(), in, userID)
	if err != nil {
		p.discardUpload(uploaded)
		respondError(ctx, p.log, err)
		return
	}

	p.cache.InvalidateByPrefix(ctx.Request.Context(), postListCachePrefix)
	utils.Success(ctx, http.StatusCreated, post)
}

// UpdatePost applies a partial update; only the author may do so.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "unauthorized")
		return
	}

	req, err := p.bindPostRequest(ctx)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid request payload")
		return
	}
	patch := req.patch()
	if err := patch.Validate(); err != nil {
		respondError(ctx, p.log, err)
		return
	}

	uploaded, err := p.saveFeaturedImage(ctx)
	if err != nil {
		respondError(ctx, p.log, err)
		return
	}
	if uploaded != "" {
		patch.FeaturedImage = &uploaded
	}

	post, err := p.posts.Update(ctx.Request.Context(), id, patch, userID)
	if err != nil {
		p.discardUpload(uploaded)
		respondError(ctx, p.log, err)
		return
	}

	p.cache.InvalidateByPrefix(ctx.Request.Context(), postListCachePrefix)
	utils.Success(ctx, http.StatusOK, post)
}

// DeletePost removes a post; only the author may do so.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "unauthorized")
		return
	}

	if err := p.posts.Delete(ctx.Request.Context(), id, userID); err != nil {
		respondError(ctx, p.log, err)
		return
	}

	p.cache.InvalidateByPrefix(ctx.Request.Context(), postListCachePrefix)
	utils.Success(ctx, http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

func (p *PostController) bindPostRequest(ctx *gin.Context) (postRequest, error) {
	var req postRequest
	if !isMultipart(ctx) {
		err := ctx.ShouldBindJSON(&req)
		return req, err
	}

	if _, err := ctx.MultipartForm(); err != nil {
		return req, err
	}
	req.Title = formValue(ctx, "title")
	req.Content = formValue(ctx, "content")
	req.Excerpt = formValue(ctx, "excerpt")
	req.Status = formValue(ctx, "status")
	// A featuredImage file part, when present, replaces this in saveFeaturedImage
	req.FeaturedImage = formValue(ctx, "featuredImage")
	if values, ok := ctx.GetPostFormArray("tags"); ok {
		tags, err := parseFormTags(values)
		if err != nil {
			return req, err
		}
		req.Tags = &tags
	}
	for _, key := range []string{"category", "categoryId"} {
		if v := formValue(ctx, key); v != nil {
			var ref idRef
			if err := ref.UnmarshalJSON([]byte(strconv.Quote(*v))); err != nil {
				return req, err
			}
			req.Category = &ref
			break
		}
	}
	return req, nil
}

// saveFeaturedImage stores the optional featuredImage file and returns its relative path.
func (p *PostController) saveFeaturedImage(ctx *gin.Context) (string, error) {
	if !isMultipart(ctx) {
		return "", nil
	}
	header, err := ctx.FormFile("featuredImage")
	if err != nil {
		// no file part
		return "", nil
	}
	stored, err := p.storage.Save(ctx.Request.Context(), header)
	if err != nil {
		return "", err
	}
	return stored.Path, nil
}

func (p *PostController) discardUpload(path string) {
	if path == "" {
		return
	}
	if err := p.storage.Remove(path); err != nil {
		p.log.Warn("failed to remove orphaned upload", zap.String("path", path), zap.Error(err))
	}
}

func isMultipart(ctx *gin.Context) bool {
	return strings.HasPrefix(ctx.ContentType(), "multipart/form-data")
}

func formValue(ctx *gin.Context, key string) *string {
	v, ok := ctx.GetPostForm(key)
	if !ok {
		return nil
	}
	return &v
}

// parseFormTags accepts repeated fields, a JSON array or a comma separated list.
func parseFormTags(values []string) ([]string, error) {
	if len(values) != 1 {
		return values, nil
	}
	v := strings.TrimSpace(values[0])
	if strings.HasPrefix(v, "[") {
		var tags []string
		if err := json.Unmarshal([]byte(v), &tags); err != nil {
			return nil, err
		}
		return tags, nil
	}
	if v == "" {
		return []string{}, nil
	}
	return strings.Split(v, ","), nil
}

// cleanTags trims tags and drops empty ones; order and duplicates are kept.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
