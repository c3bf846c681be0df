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
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/senja-literasi-api/api/swagger"
	"github.com/noah-isme/senja-literasi-api/internal/handler"
	internalmiddleware "github.com/noah-isme/senja-literasi-api/internal/middleware"
	"github.com/noah-isme/senja-literasi-api/internal/models"
	"github.com/noah-isme/senja-literasi-api/internal/repository"
	"github.com/noah-isme/senja-literasi-api/internal/service"
	"github.com/noah-isme/senja-literasi-api/pkg/cache"
	"github.com/noah-isme/senja-literasi-api/pkg/certificate"
	"github.com/noah-isme/senja-literasi-api/pkg/config"
	"github.com/noah-isme/senja-literasi-api/pkg/database"
	"github.com/noah-isme/senja-literasi-api/pkg/jobs"
	"github.com/noah-isme/senja-literasi-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/senja-literasi-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/senja-literasi-api/pkg/middleware/requestid"
	"github.com/noah-isme/senja-literasi-api/pkg/sheets"
)

// @title Senja Literasi API
// @version 1.0.0
// @description Reading materials, reflections and certificates backed by a shared spreadsheet
// @BasePath /api/v1
// @schemes http

type cacheBackend struct {
	repo  service.CacheRepository
	ready handler.ReadinessCheck
	close func() error
}

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()

	backend, err := openCache(ctx, cfg, metrics, logr)
	if err != nil {
		logr.Fatal("failed to open local cache", zap.String("driver", cfg.Cache.Driver), zap.Error(err))
	}
	defer backend.close() //nolint:errcheck

	var remote service.RemoteCollectionClient
	sheetsClient := sheets.NewClient(cfg.Sheets, logr)
	if sheetsClient.Configured() {
		remote = sheetsClient
	} else {
		logr.Warn("SHEETS_API_URL not set, serving from local cache only")
	}

	cacheStore := service.NewLocalCacheStore(backend.repo, metrics, logr)
	syncSvc := service.NewSyncService(cacheStore, remote, metrics, logr)
	if cfg.Sync.Mode == config.SyncModeAsync {
		syncSvc.EnableAsync(jobs.QueueConfig{
			Workers:    cfg.Sync.Workers,
			BufferSize: cfg.Sync.BufferSize,
			MaxRetries: cfg.Sync.MaxRetries,
			RetryDelay: cfg.Sync.RetryDelay,
			Logger:     logr,
		})
	}
	syncSvc.Start(ctx)

	validate := validator.New()
	userSvc := service.NewUserService(syncSvc, validate, logr)
	studentSvc := service.NewStudentService(syncSvc, validate, logr)
	materialSvc := service.NewMaterialService(syncSvc, validate, logr)
	submissionSvc := service.NewSubmissionService(syncSvc, materialSvc, logr)
	settingSvc := service.NewSettingService(syncSvc, logr)
	authSvc := service.NewAuthService(userSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	certOptions := certificate.Options{Title: cfg.Certificate.Title, Locale: cfg.Certificate.Locale}
	pngRenderer, err := certificate.NewPNGRenderer(certOptions, logr)
	if err != nil {
		logr.Fatal("failed to load certificate fonts", zap.Error(err))
	}
	certificateSvc := service.NewCertificateService(submissionSvc, materialSvc, settingSvc, pngRenderer, certificate.NewPDFRenderer(certOptions, logr), logr)
	recapSvc := service.NewRecapService(submissionSvc, materialSvc, logr, nil, nil)

	checks := map[string]handler.ReadinessCheck{"cache": backend.ready}
	if remote != nil {
		checks["sheets"] = func(ctx context.Context) error {
			_, err := sheetsClient.FetchAll(ctx)
			return err
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), routeDeps{
		auth:        authSvc,
		users:       handler.NewUserHandler(userSvc),
		students:    handler.NewStudentHandler(studentSvc),
		materials:   handler.NewMaterialHandler(materialSvc, submissionSvc),
		submissions: handler.NewSubmissionHandler(submissionSvc, certificateSvc, recapSvc),
		settings:    handler.NewSettingHandler(settingSvc),
		sync:        handler.NewSyncHandler(syncSvc, metrics),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "cache", cfg.Cache.Driver, "sync_mode", cfg.Sync.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http shutdown failed", zap.Error(err))
	}
	syncSvc.Stop(shutdownCtx)
}

type routeDeps struct {
	auth        *service.AuthService
	users       *handler.UserHandler
	students    *handler.StudentHandler
	materials   *handler.MaterialHandler
	submissions *handler.SubmissionHandler
	settings    *handler.SettingHandler
	sync        *handler.SyncHandler
}

func registerRoutes(api *gin.RouterGroup, deps routeDeps) {
	authHandler := handler.NewAuthHandler(deps.auth)
	api.POST("/auth/login", authHandler.Login)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(deps.auth))

	anyone := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleTeacher, models.RoleStudent)
	staff := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	admin := internalmiddleware.RequireRoles(models.RoleAdmin)
	student := internalmiddleware.RequireRoles(models.RoleStudent)

	secured.GET("/auth/me", anyone, authHandler.Me)

	users := secured.Group("/users", admin)
	users.GET("", deps.users.List)
	users.POST("", deps.users.Save)
	users.DELETE("/:id", deps.users.Delete)

	students := secured.Group("/students", staff)
	students.GET("", deps.students.List)
	students.POST("", deps.students.Create)
	students.POST("/bulk", deps.students.Bulk)
	students.DELETE("/:nisn", deps.students.Delete)

	secured.GET("/materials", anyone, deps.materials.List)
	secured.POST("/materials", staff, deps.materials.Save)
	secured.DELETE("/materials/:id", staff, deps.materials.Delete)
	secured.POST("/materials/:id/submissions", student, deps.materials.Submit)

	secured.GET("/submissions", anyone, deps.submissions.List)
	secured.POST("/submissions/:id/review", staff, deps.submissions.Review)
	secured.DELETE("/submissions/:id", staff, deps.submissions.Delete)
	secured.GET("/submissions/:id/certificate", anyone, deps.submissions.Certificate)
	secured.GET("/exports/submissions", staff, deps.submissions.Export)

	secured.GET("/settings", admin, deps.settings.List)
	secured.PUT("/settings/:key", admin, deps.settings.Update)
	secured.GET("/certificate-background", admin, deps.settings.CertificateBackground)
	secured.PUT("/certificate-background", admin, deps.settings.SaveCertificateBackground)

	secured.GET("/sync/status", admin, deps.sync.Status)
}

func openCache(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*cacheBackend, error) {
	switch cfg.Cache.Driver {
	case config.CacheDriverMemory:
		repo := repository.NewMemoryCacheRepository()
		return &cacheBackend{repo: repo, ready: func(context.Context) error { return nil }, close: repo.Close}, nil
	case config.CacheDriverRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		repo := repository.NewRedisCacheRepository(client, logr)
		return &cacheBackend{
			repo:  repo,
			ready: func(ctx context.Context) error { return client.Ping(ctx).Err() },
			close: repo.Close,
		}, nil
	default:
		var (
			db  *sqlx.DB
			err error
		)
		if cfg.Cache.Driver == config.CacheDriverPostgres {
			db, err = database.NewPostgres(ctx, cfg.Database)
		} else {
			db, err = database.NewSQLite(cfg.Cache.SQLitePath)
		}
		if err != nil {
			return nil, err
		}
		repo := repository.NewSQLCacheRepository(db)
		repo.WithQueryObserver(metrics)
		if err := repo.Migrate(ctx); err != nil {
			_ = repo.Close()
			return nil, err
		}
		return &cacheBackend{repo: repo, ready: repo.Ping, close: repo.Close}, nil
	}
}
