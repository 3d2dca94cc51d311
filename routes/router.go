package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/blogcms/config"
	"github.com/cppla/blogcms/controllers"
	"github.com/cppla/blogcms/middleware"
	"github.com/cppla/blogcms/utils"
)

// Deps is everything the router needs, built once in main.
type Deps struct {
	Config        config.AppConfig
	Log           *zap.Logger
	Authenticator middleware.Authenticator

	Auth       *controllers.AuthController
	Posts      *controllers.PostController
	Categories *controllers.CategoryController
	Uploads    *controllers.UploadController
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rolling file
	gl := d.Log
	if cfg.GinPath != "" {
		if l, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress); err == nil {
			gl = l
		} else {
			d.Log.Warn("gin logger init failed, using app logger", zap.Error(err))
		}
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, false))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		// credentials cannot be combined with a wildcard origin
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Static(cfg.UploadPublicPath, cfg.UploadDir)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, http.StatusOK, gin.H{"status": "ok"})
	})

	authRequired := middleware.AuthRequired(d.Authenticator)
	optionalAuth := middleware.OptionalAuth(d.Authenticator)

	authGroup := r.Group("/auth")
	authGroup.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	authGroup.POST("/register", d.Auth.Register)
	authGroup.POST("/login", d.Auth.Login)
	authGroup.POST("/logout", authRequired, d.Auth.Logout)
	authGroup.GET("/me", authRequired, d.Auth.Me)

	postsGroup := r.Group("/posts")
	postsGroup.GET("", d.Posts.ListPosts)
	postsGroup.GET("/all", authRequired, d.Posts.ListAllPosts)
	postsGroup.GET("/:id", optionalAuth, d.Posts.GetPost)
	postsGroup.POST("", authRequired, d.Posts.CreatePost)
	postsGroup.PUT("/:id", authRequired, d.Posts.UpdatePost)
	postsGroup.PATCH("/:id", authRequired, d.Posts.UpdatePost)
	postsGroup.DELETE("/:id", authRequired, d.Posts.DeletePost)

	categoriesGroup := r.Group("/categories")
	categoriesGroup.GET("", d.Categories.ListCategories)
	categoriesGroup.GET("/:id", d.Categories.GetCategory)
	categoriesGroup.POST("", authRequired, d.Categories.CreateCategory)
	categoriesGroup.PUT("/:id", authRequired, d.Categories.UpdateCategory)
	categoriesGroup.PATCH("/:id", authRequired, d.Categories.UpdateCategory)
	categoriesGroup.DELETE("/:id", authRequired, d.Categories.DeleteCategory)

	r.POST("/uploads", authRequired, middleware.RateLimit(cfg.RateLimitPerMinute), d.Uploads.UploadImage)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
