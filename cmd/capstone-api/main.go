package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/titulapp/capstone-api/api/swagger"
	"github.com/titulapp/capstone-api/internal/handler"
	"github.com/titulapp/capstone-api/internal/middleware"
	"github.com/titulapp/capstone-api/internal/models"
	"github.com/titulapp/capstone-api/internal/repository"
	"github.com/titulapp/capstone-api/internal/service"
	"github.com/titulapp/capstone-api/pkg/cache"
	"github.com/titulapp/capstone-api/pkg/config"
	"github.com/titulapp/capstone-api/pkg/database"
	"github.com/titulapp/capstone-api/pkg/logger"
	corsmiddleware "github.com/titulapp/capstone-api/pkg/middleware/cors"
	reqidmiddleware "github.com/titulapp/capstone-api/pkg/middleware/requestid"
)

// @title Capstone Review API
// @version 0.1.0
// @description Deliverable review workflow for capstone projects
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	deliverableRepo := repository.NewDeliverableRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	historySvc := service.NewHistoryService(historyRepo, logr)
	accessSvc := service.NewAccessService(projectRepo, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, nil, cfg.Notifications, logr, metricsSvc)
	workflowSvc := service.NewWorkflowService(service.WorkflowServiceParams{
		Deliverables: deliverableRepo,
		Comments:     commentRepo,
		Access:       accessSvc,
		History:      historySvc,
		Notifier:     notificationSvc,
		Metrics:      metricsSvc,
		Logger:       logr,
	})
	deliverableSvc := service.NewDeliverableService(deliverableRepo, accessSvc, historySvc, validate, logr)
	commentSvc := service.NewCommentService(commentRepo, historySvc, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.Enabled && redisClient != nil)
	dashboardSvc := service.NewDashboardService(workflowSvc, cacheSvc, cfg.Dashboard, logr)
	exportSvc := service.NewExportService(historySvc, cfg.Exports, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notificationSvc.Start(rootCtx)
	defer notificationSvc.Stop()

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	deliverableHandler := handler.NewDeliverableHandler(workflowSvc, deliverableSvc, commentSvc)
	historyHandler := handler.NewHistoryHandler(historySvc, exportSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))

	reviewers := middleware.RBAC(models.RoleCoordinator, models.RoleDirector, models.RoleEvaluator)

	deliverables := secured.Group("/deliverables")
	deliverables.POST("", reviewers, deliverableHandler.Create)
	deliverables.GET("", deliverableHandler.List)
	deliverables.GET("/:id", deliverableHandler.Get)
	deliverables.GET("/:id/attachments", deliverableHandler.Attachments)
	deliverables.POST("/:id/submit", deliverableHandler.Submit)
	deliverables.POST("/:id/review", reviewers, deliverableHandler.BeginReview)
	deliverables.POST("/:id/decision", reviewers, deliverableHandler.Decide)
	deliverables.PUT("/:id/assignee", reviewers, deliverableHandler.Assign)
	deliverables.GET("/:id/comments", deliverableHandler.ListComments)
	deliverables.POST("/:id/comments", deliverableHandler.AddComment)
	deliverables.GET("/:id/history", historyHandler.List)
	deliverables.GET("/:id/history/export", reviewers, historyHandler.Export)

	secured.PUT("/comments/:commentId", deliverableHandler.EditComment)
	secured.DELETE("/comments/:commentId", deliverableHandler.DeleteComment)

	secured.GET("/notifications", notificationHandler.List)
	secured.GET("/notifications/unread-count", notificationHandler.UnreadCount)
	secured.POST("/notifications/:id/read", notificationHandler.MarkRead)

	secured.GET("/dashboard/summary", dashboardHandler.Summary)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("forced shutdown", zap.Error(err))
	}
}
