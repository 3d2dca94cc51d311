package main

import (
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/cppla/blogcms/config"
	"github.com/cppla/blogcms/controllers"
	"github.com/cppla/blogcms/media"
	"github.com/cppla/blogcms/models"
	"github.com/cppla/blogcms/repository"
	"github.com/cppla/blogcms/routes"
	"github.com/cppla/blogcms/services"
	"github.com/cppla/blogcms/utils"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the JSON config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Initialize logger early
	logger, err := utils.NewLogger(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := config.OpenDatabase(cfg, logger, &models.User{}, &models.Category{}, &models.Post{})
	if err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}

	rc := utils.NewRedis(cfg, logger)
	cache := utils.NewCache(rc, logger.Named("cache"))
	blacklist := utils.NewTokenBlacklist(rc)
	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiration)

	refs := repository.NewReferenceResolver(db)
	postRepo := repository.NewPostRepository(db, refs)
	categoryRepo := repository.NewCategoryRepository(db)
	userRepo := repository.NewUserRepository(db)

	resolver := media.NewResolver(cfg.BaseURL)
	storage := media.NewStorage(cfg.UploadDir, cfg.UploadPublicPath, cfg.UploadMaxFileSize, logger.Named("media"))

	authService := services.NewAuthService(userRepo, tokens, blacklist, cfg.IsReservedEmail, logger.Named("auth"))
	postService := services.NewPostService(postRepo, categoryRepo, resolver, cfg, logger.Named("posts"))
	categoryService := services.NewCategoryService(categoryRepo, postRepo, logger.Named("categories"))

	r := routes.SetupRouter(routes.Deps{
		Config:        cfg,
		Log:           logger,
		Authenticator: authService,
		Auth:          controllers.NewAuthController(authService, logger),
		Posts:         controllers.NewPostController(postService, storage, cache, cfg, logger),
		Categories:    controllers.NewCategoryController(categoryService, cache, logger),
		Uploads:       controllers.NewUploadController(storage, logger),
	})

	logger.Info("starting server", zap.String("port", cfg.AppPort), zap.String("base_url", cfg.BaseURL))
	if err := utils.GraceServer(":"+cfg.AppPort, r, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}
