// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"time"

	_ "faithfulcity/docs" // swagger docs
	"faithfulcity/internal/cache"
	"faithfulcity/internal/config"
	"faithfulcity/internal/feed"
	"faithfulcity/internal/mail"
	"faithfulcity/internal/middleware"
	"faithfulcity/internal/models"
	"faithfulcity/internal/notifications"
	"faithfulcity/internal/quiz"
	"faithfulcity/internal/repository"
	"faithfulcity/internal/service"
	"faithfulcity/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const defaultOrigins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"

// Deps are the optional collaborators a bootstrap layer may build up front.
// Nil fields are created from the config.
type Deps struct {
	Blobs  storage.BlobStore
	Mailer *mail.Mailer
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo         repository.UserRepository
	familyRepo       repository.FamilyRepository
	postRepo         repository.PostRepository
	mediaRepo        repository.MediaRepository
	notificationRepo repository.NotificationRepository

	blobs    storage.BlobStore
	mailer   *mail.Mailer
	notifier *notifications.Notifier
	hub      *notifications.Hub
	bridge   *feed.Bridge
	quiz     *quiz.Bank

	identityService     *service.IdentityService
	membershipService   *service.MembershipService
	postService         *service.PostService
	mediaService        *service.MediaService
	notificationService *service.NotificationService
}

// NewServer creates a server over an already connected database and Redis
// client. rdb may be nil; the live feed then stays in process.
func NewServer(cfg *config.Config, db *gorm.DB, rdb *redis.Client, deps Deps) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	blobs := deps.Blobs
	if blobs == nil {
		var err error
		blobs, err = storage.New(ctx, cfg)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("blob storage: %w", err)
		}
	}

	bank, err := quiz.Default()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("quiz bank: %w", err)
	}

	middleware.InitMiddleware(cfg, rdb)

	s := &Server{
		config:           cfg,
		db:               db,
		redis:            rdb,
		promMiddleware:   middleware.InitMetrics("faithfulcity-api"),
		shutdownCtx:      ctx,
		shutdownFn:       cancel,
		userRepo:         repository.NewUserRepository(db),
		familyRepo:       repository.NewFamilyRepository(db, cache.New(rdb)),
		postRepo:         repository.NewPostRepository(db),
		mediaRepo:        repository.NewMediaRepository(db),
		notificationRepo: repository.NewNotificationRepository(db),
		blobs:            blobs,
		mailer:           deps.Mailer,
		notifier:         notifications.NewNotifier(rdb),
		hub:              notifications.NewHub(),
		quiz:             bank,
	}

	// Feed snapshots read through the services so an unreachable store
	// degrades to an empty list like any other list read.
	s.bridge = feed.NewBridge(
		func(ctx context.Context, familyID string) ([]models.Post, error) {
			return s.postService.ListByFamily(ctx, familyID)
		},
		func(ctx context.Context, familyID string) ([]models.Notification, error) {
			return s.notificationService.ListByFamily(ctx, familyID)
		},
	)

	var announcer service.Announcer
	if s.mailer != nil {
		announcer = s.mailer
	}
	s.identityService = service.NewIdentityService(s.userRepo, rdb)
	s.membershipService = service.NewMembershipService(s.userRepo, s.familyRepo)
	s.notificationService = service.NewNotificationService(s.notificationRepo, s.userRepo, s.familyRepo, s.bridge, announcer)
	s.postService = service.NewPostService(s.postRepo, s.notificationService, s.bridge, s.familyRepo)
	s.mediaService = service.NewMediaService(s.mediaRepo, s.blobs, s.notificationService, s.familyRepo,
		int64(cfg.MediaMaxUploadMB)<<20)

	return s, nil
}

// App builds the Fiber app with middleware and routes on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	bodyLimit := s.config.MediaMaxUploadMB << 20
	if bodyLimit <= 0 {
		bodyLimit = service.DefaultMaxUploadBytes
	}
	app := fiber.New(fiber.Config{
		AppName: "The Faithful City API",
		// Room for multipart framing around the largest accepted file.
		BodyLimit: bodyLimit + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
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

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Media pages embed audio and images from the blob host.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = defaultOrigins
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || websocket.IsWebSocketUpgrade(c)
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	api.Get("/", s.HealthCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "The Faithful City Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	if local, ok := s.blobs.(*storage.LocalStore); ok {
		app.Static("/media", local.Root(), fiber.Static{
			ByteRange: true,
			MaxAge:    3600,
		})
	}

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 5, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", middleware.AuthRequired, s.Logout)

	// Quiz content is public.
	api.Get("/quiz", s.GetQuiz)
	api.Post("/quiz/grade", s.GradeQuiz)

	// Browsers cannot set headers on the upgrade request, so the token may
	// come from the query string here.
	ws := api.Group("/ws", middleware.WebSocketAuthRequired)
	ws.Get("/feed", s.FeedUpgrade, s.FeedWebSocketHandler())

	// Group handlers are prefix middleware, so everything under /api
	// registered from here on requires a bearer token.
	protected := api.Group("", middleware.AuthRequired)

	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)

	families := protected.Group("/families")
	families.Get("/", s.GetFamilies)
	// Specific /:familyId/:resource routes before the generic /:familyId route
	families.Post("/:familyId/join", s.JoinFamily)
	families.Get("/:familyId/members", s.requireMember, s.GetFamilyMembers)
	families.Get("/:familyId/admins", s.requireMember, s.GetFamilyAdmins)
	families.Get("/:familyId/stats", s.requireMember, s.GetFamilyStats)
	families.Post("/:familyId/members/:userId/promote", s.requireAdmin, s.PromoteMember)
	families.Post("/:familyId/members/:userId/demote", s.requireAdmin, s.DemoteMember)
	families.Delete("/:familyId/members/:userId", s.requireAdmin, s.RemoveMember)

	families.Get("/:familyId/posts", s.requireMember, s.GetFamilyPosts)
	families.Post("/:familyId/posts", s.requireMember,
		middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	families.Get("/:familyId/media", s.requireMember, s.GetFamilyMedia)
	families.Post("/:familyId/media", s.requireMember,
		middleware.RateLimit(s.redis, 20, 10*time.Minute, "upload_media"), s.UploadMedia)
	families.Get("/:familyId/notifications", s.requireMember, s.GetFamilyNotifications)
	families.Post("/:familyId/notifications", s.requireAdmin, s.CreateNotification)

	families.Put("/:familyId", s.requireAdmin, s.UpdateFamily)
	families.Get("/:familyId", s.GetFamily)

	posts := protected.Group("/posts")
	posts.Post("/:postId/like", s.LikePost)
	posts.Post("/:postId/comments",
		middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Get("/:postId", s.GetPost)

	media := protected.Group("/media")
	media.Get("/:mediaId", s.GetMedia)
	media.Delete("/:mediaId", s.DeleteMedia)

	notifs := protected.Group("/notifications")
	notifs.Post("/:notificationId/read", s.MarkNotificationRead)

}

// Start wires the live feed to Redis and serves until the app is shut down.
func (s *Server) Start() error {
	if err := s.bridge.Connect(s.shutdownCtx, s.notifier); err != nil {
		// The bridge keeps dispatching in process.
		middleware.Logger.Warn("live feed is local to this instance", "error", err)
	}

	app := s.App()
	middleware.Logger.Info("server starting", "port", s.config.Port, "env", s.config.Env)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancelling the server context stops the Redis subscriber and every
	// feed subscription still attached to it.
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub", "hub", s.hub.Name(), "error", err)
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
