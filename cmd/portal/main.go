package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/rec-portal/api/swagger"
	"github.com/noah-isme/rec-portal/internal/backend"
	"github.com/noah-isme/rec-portal/internal/handler"
	internalmiddleware "github.com/noah-isme/rec-portal/internal/middleware"
	"github.com/noah-isme/rec-portal/internal/models"
	"github.com/noah-isme/rec-portal/internal/notify"
	"github.com/noah-isme/rec-portal/internal/query"
	"github.com/noah-isme/rec-portal/internal/repository"
	"github.com/noah-isme/rec-portal/internal/service"
	"github.com/noah-isme/rec-portal/internal/web"
	"github.com/noah-isme/rec-portal/pkg/cache"
	"github.com/noah-isme/rec-portal/pkg/config"
	"github.com/noah-isme/rec-portal/pkg/logger"
	corsmiddleware "github.com/noah-isme/rec-portal/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/rec-portal/pkg/middleware/requestid"
)

// @title Recommendation Request Portal
// @version 1.0.0
// @description Server-rendered portal for recommendation letter requests.
// @BasePath /
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	readiness := map[string]handler.ReadinessCheck{}
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, using in-memory cache", zap.Error(err))
	}
	if redisClient != nil {
		redisRepo := repository.NewCacheRepository(redisClient, logr)
		defer redisRepo.Close() //nolint:errcheck
		cacheRepo = redisRepo
		readiness["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		cacheRepo = repository.NewMemoryCacheRepository()
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Query.CacheTTL, logr)

	transport := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logr, backend.WithObserver(metricsSvc))
	queryClient := query.NewClient(transport, cacheSvc, metricsSvc, logr, query.Config{
		CacheTTL:      cfg.Query.CacheTTL,
		RenderTimeout: cfg.Query.RenderTimeout,
		FetchTimeout:  cfg.Backend.Timeout,
	})

	loc := cfg.Display.Location()
	requestSvc := service.NewRequestService(queryClient, loc, logr)
	referenceSvc := service.NewReferenceService(transport, logr)
	exportSvc := service.NewExportService(nil, nil, loc, logr)

	pages := handler.NewRequestPageHandler(requestSvc, referenceSvc)
	exports := handler.NewExportHandler(requestSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, readiness)

	renderer, err := web.NewRenderer()
	if err != nil {
		logr.Fatal("failed to parse templates", zap.Error(err))
	}

	r := gin.New()
	r.HTMLRender = renderer
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(internalmiddleware.Session(internalmiddleware.NewSessionVerifier(cfg.Session), logr))
	r.Use(logger.GinMiddleware(logr))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(notify.Sessions([]byte(cfg.Session.Secret)), notify.Middleware())

	ops := r.Group("", corsmiddleware.New(cfg.CORS.AllowedOrigins))
	ops.GET("/health", metricsHandler.Health)
	ops.GET("/ready", metricsHandler.Ready)
	ops.GET("/metrics", metricsHandler.Prometheus)
	for _, path := range []string{"/health", "/ready", "/metrics"} {
		ops.OPTIONS(path, func(*gin.Context) {})
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, landingPath(internalmiddleware.CurrentUser(c)))
	})

	user := r.Group("", internalmiddleware.RequireCapability(models.CapabilityUser))
	user.GET(handler.PathProfile, pages.Profile)
	user.GET(handler.PathCreate, pages.CreateForm)
	user.POST(handler.PathCreate, internalmiddleware.Audit(logr, "request.create"), pages.Create)
	user.GET("/student/recommendations/edit/:id", pages.EditForm)
	user.POST("/student/recommendations/edit/:id", internalmiddleware.Audit(logr, "request.update"), pages.Edit)
	user.POST("/requests/:id/delete", internalmiddleware.Audit(logr, "request.delete"), pages.Delete)

	reviewers := r.Group("/requests", internalmiddleware.RequireCapability(models.CapabilityProfessor, models.CapabilityStudent))
	reviewers.GET("/pending", pages.Pending)
	reviewers.GET("/completed", pages.Completed)
	reviewers.GET("/statistics", pages.Statistics)
	reviewers.GET("/statistics/export", exports.Statistics)

	r.POST("/requests/:id/status",
		internalmiddleware.RequireCapability(models.CapabilityProfessor),
		internalmiddleware.Audit(logr, "request.status"),
		pages.UpdateStatus)

	r.GET(handler.PathAdmin, internalmiddleware.RequireCapability(models.CapabilityAdmin), pages.Admin)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "backend", cfg.Backend.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func landingPath(viewer models.CurrentUser) string {
	switch {
	case models.HasCapability(viewer, models.CapabilityAdmin):
		return handler.PathAdmin
	case models.HasCapability(viewer, models.CapabilityProfessor):
		return handler.PathPending
	default:
		return handler.PathProfile
	}
}
