package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/courtside-scheduler/api/swagger"
	"github.com/noah-isme/courtside-scheduler/internal/handler"
	internalmiddleware "github.com/noah-isme/courtside-scheduler/internal/middleware"
	"github.com/noah-isme/courtside-scheduler/internal/repository"
	"github.com/noah-isme/courtside-scheduler/internal/service"
	"github.com/noah-isme/courtside-scheduler/pkg/cache"
	"github.com/noah-isme/courtside-scheduler/pkg/config"
	"github.com/noah-isme/courtside-scheduler/pkg/database"
	"github.com/noah-isme/courtside-scheduler/pkg/jobs"
	"github.com/noah-isme/courtside-scheduler/pkg/logger"
	corsmiddleware "github.com/noah-isme/courtside-scheduler/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/courtside-scheduler/pkg/middleware/requestid"
)

// @title Courtside Scheduler API
// @version 1.0.0
// @description Court scheduling and conflict validation for multi-division tournaments
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		if cfg.Grid.CacheEnabled {
			logr.Warn("redis unavailable, grid cache disabled", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	eventRepo := repository.NewEventRepository(db)
	courtRepo := repository.NewCourtRepository(db)
	groupRepo := repository.NewCourtGroupRepository(db)
	divisionRepo := repository.NewDivisionRepository(db)
	blockRepo := repository.NewBlockAssignmentRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	encounterRepo := repository.NewEncounterRepository(db)

	stores := service.ScheduleStores{
		Events:       eventRepo,
		Courts:       courtRepo,
		Groups:       groupRepo,
		Divisions:    divisionRepo,
		Blocks:       blockRepo,
		Availability: availabilityRepo,
		Encounters:   encounterRepo,
	}
	rules := service.SchedulingRules{
		SlotGranularity:     cfg.Scheduler.SlotGranularity,
		DefaultMatchMinutes: cfg.Scheduler.DefaultMatchMinutes,
		DefaultRestMinutes:  cfg.Scheduler.DefaultRestMinutes,
	}

	var locker service.EventLocker
	switch cfg.Scheduler.LockBackend {
	case config.LockBackendLocal:
		locker = service.NewLocalEventLocker(metricsSvc)
	default:
		locker = service.NewAdvisoryEventLocker(repository.NewAdvisoryLockRepository(db, logr), metricsSvc, logr)
	}

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Grid.CacheTTL, logr, cfg.Grid.CacheEnabled && redisClient != nil)

	gridSvc := service.NewGridService(stores, rules, cacheSvc, service.GridConfig{
		CacheTTL:       cfg.Grid.CacheTTL,
		ExportsEnabled: cfg.Exports.Enabled,
		ExportTitle:    cfg.Exports.Title,
	}, logr)
	if cacheSvc.Enabled() {
		warmQueue := jobs.NewQueue("grid-warm", gridSvc.WarmJob, jobs.QueueConfig{
			Workers:    cfg.Grid.WarmWorkers,
			MaxRetries: cfg.Grid.WarmRetries,
			RetryDelay: time.Second,
			Logger:     logr,
		})
		warmQueue.Start(ctx)
		defer warmQueue.Stop()
		gridSvc.AttachWarmQueue(warmQueue)
	}

	conflictValidator := service.NewConflictValidator(stores, rules, metricsSvc, logr)
	scheduler := service.NewEncounterScheduler(stores, encounterRepo, rules, locker, conflictValidator, gridSvc, metricsSvc, validate, logr)
	mutator := service.NewScheduleMutator(stores, encounterRepo, rules, locker, conflictValidator, gridSvc, validate, logr)
	allocator := service.NewBlockAllocator(stores, db, locker, gridSvc, validate, logr)
	availabilitySvc := service.NewAvailabilityService(eventRepo, courtRepo, availabilityRepo, db, gridSvc, validate, logr)
	verifier := service.NewTokenVerifier(cfg.JWT.Secret)

	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = cache.Check(redisClient)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	registerRoutes(r, cfg, routeHandlers{
		schedule:     handler.NewScheduleHandler(scheduler, mutator, conflictValidator),
		blocks:       handler.NewBlockHandler(allocator),
		availability: handler.NewAvailabilityHandler(availabilitySvc),
		grid:         handler.NewGridHandler(gridSvc),
		metrics:      handler.NewMetricsHandler(metricsSvc, checks),
	}, verifier)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "lock_backend", cfg.Scheduler.LockBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
