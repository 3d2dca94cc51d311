package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/blogcms/services"
	"github.com/cppla/blogcms/utils"
)

// CategoryController exposes category CRUD.
type CategoryController struct {
	categories *services.CategoryService
	cache      *utils.Cache
	log        *zap.Logger
}

func NewCategoryController(categories *services.CategoryService, cache *utils.Cache, log *zap.Logger) *CategoryController {
	return &CategoryController{categories: categories, cache: cache, log: log}
}

func (c *CategoryController) ListCategories(ctx *gin.Context) {
	list, err := c.categories.List(ctx.Request.Context())
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	utils.Success(ctx, http.StatusOK, list)
}

func (c *CategoryController) GetCategory(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	category, err := c.categories.Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	utils.Success(ctx, http.StatusOK, category)
}

func (c *CategoryController) CreateCategory(ctx *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
		Slug string `json:"slug"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}
	category, err := c.categories.Create(ctx.Request.Context(), services.CategoryInput{Name: req.Name, Slug: req.Slug})
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	// Cached pages keyed by this slug were built while it did not resolve
	c.cache.InvalidateByPrefix(ctx.Request.Context(), postListCachePrefix)
	utils.Success(ctx, http.StatusCreated, category)
}

// UpdateCategory serves both PUT and PATCH; absent fields are left unchanged.
func (c *CategoryController) UpdateCategory(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Name *string `json:"name"`
		Slug *string `json:"slug"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid request payload")
		return
	}
	category, err := c.categories.Update(ctx.Request.Context(), id, services.CategoryPatch{Name: req.Name, Slug: req.Slug})
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	// Listed posts embed their category
	c.cache.InvalidateByPrefix(ctx.Request.Context(), postListCachePrefix)
	utils.Success(ctx, http.StatusOK, category)
}

func (c *CategoryController) DeleteCategory(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := c.categories.Delete(ctx.Request.Context(), id); err != nil {
		respondError(ctx, c.log, err)
		return
	}
	c.cache.InvalidateByPrefix(ctx.Request.Context(), postListCachePrefix)
	utils.Success(ctx, http.StatusOK, gin.H{"message": "Category deleted successfully"})
}
