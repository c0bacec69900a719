// Package server exposes the ranking engine over HTTP.
package server

import (
	"context"
	"log/slog"
	"time"

	"collectorhub/internal/cache"
	"collectorhub/internal/config"
	"collectorhub/internal/featureflags"
	"collectorhub/internal/middleware"
	"collectorhub/internal/models"
	"collectorhub/internal/repository"
	"collectorhub/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	auth           *middleware.Authenticator
	limiter        *middleware.RateLimiter
	featureFlags   *featureflags.Manager

	userRepo          repository.UserRepository
	voteService       *service.VoteService
	feedService       *service.FeedService
	postService       *service.PostService
	commentService    *service.CommentService
	membershipService *service.MembershipService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; the membership cache and rate limiter then fall
// back to in-process behaviour.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)

	flags := featureflags.NewManager(cfg.FeatureFlags)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("collectorhub-api"),
		auth:           middleware.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience),
		limiter:        middleware.NewRateLimiter(middleware.RateLimiterOptions{Redis: redisClient, Policy: middleware.FailOpen}),
		featureFlags:   flags,
		userRepo:       userRepo,
	}

	s.membershipService = service.NewMembershipService(membershipRepo, cache.New(redisClient), cfg.MembershipCacheTTL())
	s.voteService = service.NewVoteService(voteRepo)
	s.feedService = service.NewFeedService(postRepo, voteRepo, s.membershipService, flags, service.FeedLimits{
		Default: cfg.FeedDefaultLimit,
		Max:     cfg.FeedMaxLimit,
	})
	s.postService = service.NewPostService(postRepo, voteRepo, membershipRepo, userRepo.IsAdmin, flags)
	s.commentService = service.NewCommentService(commentRepo, postRepo, voteRepo, userRepo.IsAdmin, flags)

	return s, nil
}

// Limiter exposes the request limiter so its idle buckets can be swept.
func (s *Server) Limiter() *middleware.RateLimiter {
	return s.limiter
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())

	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return uuid.NewString() },
	}))

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate request and trace IDs
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global per-IP budget; votes and comments carry their own per-user limits.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithError(c, fiber.StatusTooManyRequests, &models.AppError{
				Code:    "RATE_LIMITED",
				Message: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.HealthCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	optional := s.auth.OptionalAuth()
	protected := s.auth.RequireAuth()

	api.Get("/feed", optional, s.GetFeed)
	api.Get("/categories", s.GetCategories)

	votes := api.Group("/votes", protected, s.voteRateLimit())
	votes.Post("/", s.CastVote)
	votes.Delete("/", s.RemoveVote)

	posts := api.Group("/posts")
	posts.Post("/", protected, s.CreatePost)
	// Specific /:id/:resource routes before the generic /:id route
	posts.Get("/:id/comments", optional, s.GetComments)
	posts.Post("/:id/comments", protected,
		s.limiter.Middleware("create_comment", s.config.CommentRateLimit, s.config.CommentRateWindow()), s.CreateComment)
	posts.Post("/:id/save", protected, s.SavePost)
	posts.Delete("/:id/save", protected, s.UnsavePost)
	posts.Get("/:id", optional, s.GetPost)
	posts.Delete("/:id", protected, s.DeletePost)

	comments := api.Group("/comments", protected)
	comments.Put("/:commentId", s.UpdateComment)
	comments.Delete("/:commentId", s.DeleteComment)

	api.Post("/categories/:id/membership", protected, s.JoinCategory)
	api.Delete("/categories/:id/membership", protected, s.LeaveCategory)
	api.Post("/groups/:id/membership", protected, s.JoinGroup)
	api.Delete("/groups/:id/membership", protected, s.LeaveGroup)

	admin := api.Group("/admin", protected, s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// voteRateLimit applies the vote budget to callers the vote_rate_limit flag
// is enabled for.
func (s *Server) voteRateLimit() fiber.Handler {
	limit := s.limiter.Middleware("vote", s.config.VoteRateLimit, s.config.VoteRateWindow())
	return func(c *fiber.Ctx) error {
		if !s.featureFlags.Enabled(featureflags.VoteRateLimit, middleware.UserID(c)) {
			return c.Next()
		}
		return limit(c)
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after RequireAuth so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, err := s.isAdmin(c, middleware.UserID(c))
		if err != nil {
			return models.RespondWithAppError(c, models.NewUnavailableError(err))
		}
		if !admin {
			return models.RespondWithAppError(c, models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// NewApp builds the Fiber application with middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "CollectorHub API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if _, ok := err.(*fiber.Error); !ok {
				middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			}
			return models.RespondWithAppError(c, err)
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// Start listens on the configured port until Shutdown is called.
func (s *Server) Start() error {
	app := s.NewApp()
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server and closes its stores.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
