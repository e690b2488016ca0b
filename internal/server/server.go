// Package server contains the HTTP handlers and routing for the Glimpse API.
package server

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "glimpse/docs" // swagger docs
	"glimpse/internal/bootstrap"
	"glimpse/internal/config"
	"glimpse/internal/events"
	"glimpse/internal/featureflags"
	"glimpse/internal/middleware"
	"glimpse/internal/repository"
	"glimpse/internal/service"
	"glimpse/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// httpMetrics registers the HTTP collectors on the default registry once.
func httpMetrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New("glimpse-api")
	})
	return prom
}

// Server holds all dependencies and provides handlers
type Server struct {
	config   *config.Config
	db       *gorm.DB
	redis    *redis.Client
	app      *fiber.App
	sessions *middleware.SessionManager
	flags    *featureflags.Set
	events   events.Publisher
	store    storage.ObjectStore

	authService    *service.AuthService
	userService    *service.UserService
	postService    *service.PostService
	commentService *service.CommentService
	chatService    *service.ChatService
}

// NewServer connects every runtime dependency described by cfg.
func NewServer(cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedDemo: cfg.SeedDemo && !cfg.IsProduction()})
	if err != nil {
		return nil, err
	}

	store, err := storage.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("media storage: %w", err)
	}

	publisher, err := events.NewPublisher(cfg, featureflags.Parse(cfg.FeatureFlags))
	if err != nil {
		return nil, fmt.Errorf("event publisher: %w", err)
	}

	return NewServerWithDeps(cfg, db, rdb, store, publisher)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// rdb may be nil; publisher defaults to a no-op.
func NewServerWithDeps(
	cfg *config.Config,
	db *gorm.DB,
	rdb *redis.Client,
	store storage.ObjectStore,
	publisher events.Publisher,
) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("server: database is required")
	}
	if store == nil {
		return nil, fmt.Errorf("server: media store is required")
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	flags := featureflags.Parse(cfg.FeatureFlags)
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)
	bookmarkRepo := repository.NewBookmarkRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	chatRepo := repository.NewChatRepository(db)

	s := &Server{
		config:   cfg,
		db:       db,
		redis:    rdb,
		sessions: middleware.NewSessionManager(cfg.JWTSecret, ttl, rdb),
		flags:    flags,
		events:   publisher,
		store:    store,
	}

	media := service.NewMediaService(store, cfg, flags)
	s.authService = service.NewAuthService(userRepo, s.sessions)
	s.userService = service.NewUserService(userRepo, followRepo, media, publisher)
	s.postService = service.NewPostService(postRepo, bookmarkRepo, media, publisher)
	s.commentService = service.NewCommentService(commentRepo, postRepo)
	s.chatService = service.NewChatService(chatRepo, userRepo, publisher)

	return s, nil
}

// App builds the Fiber application on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "Glimpse API",
		BodyLimit:    (s.config.MediaMaxUploadMB + 1) << 20,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(httpMetrics().Middleware)
	app.Use(middleware.TracingMiddleware())
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: !strings.Contains(origins, "*"),
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || strings.HasPrefix(c.Path(), "/health")
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many requests, please try again later.",
			})
		},
	}))
}

func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	httpMetrics().RegisterAt(app, "/metrics")
	app.Get("/api/swagger/*", swagger.HandlerDefault)

	if s.config.MediaBackend == config.MediaBackendLocal && strings.HasPrefix(s.config.MediaPublicURL, "/") {
		app.Static(s.config.MediaPublicURL, s.config.MediaDir, fiber.Static{MaxAge: 86400})
	}

	api := app.Group("/api/v1")
	auth := s.sessions.SessionRequired()

	user := api.Group("/user")
	user.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	user.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	user.Post("/logout", s.Logout)
	user.Get("/logout", s.Logout)
	user.Get("/suggested", auth, s.GetSuggestedUsers)
	user.Get("/bookmarks", auth, s.GetBookmarks)
	user.Post("/profile/edit", auth, s.EditProfile)
	user.Get("/:id/profile", auth, s.GetProfile)
	user.Get("/:id/posts", auth, s.GetUserPosts)
	user.Post("/:id/followOrUnfollow", auth, s.FollowOrUnfollow)

	post := api.Group("/post", auth)
	post.Post("/new", middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.AddNewPost)
	post.Get("/all", s.GetAllPosts)
	post.Get("/mine", s.GetMyPosts)
	post.Post("/:id/like", s.LikePost)
	post.Post("/:id/dislike", s.DislikePost)
	post.Post("/:id/comment", middleware.RateLimit(s.redis, 30, time.Minute, "create_comment"), s.AddComment)
	post.Get("/:id/comments", s.GetCommentsOfPost)
	post.Post("/:id/bookmark", s.BookmarkPost)
	post.Delete("/:id", s.DeletePost)

	message := api.Group("/message", auth)
	message.Post("/:id/send", middleware.RateLimit(s.redis, 30, time.Minute, "send_message"), s.SendMessage)
	message.Get("/:id", s.GetMessages)
}

func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start serves the app until Shutdown is called.
func (s *Server) Start() error {
	middleware.Logger.Info("server starting", "port", s.config.Port, "env", s.config.Env)
	return s.App().Listen(":" + s.config.Port)
}

// Shutdown stops the HTTP server and closes every runtime dependency.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if err := s.events.Close(); err != nil {
		middleware.Logger.Error("error closing event publisher", "error", err)
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
