package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"appgambit/database"
	"appgambit/internal/cache"
	"appgambit/internal/config"
	"appgambit/internal/logger"
	"appgambit/internal/microservices/http-api/handler"
	"appgambit/internal/microservices/http-api/middleware"
	"appgambit/internal/microservices/http-api/repository"
	"appgambit/internal/microservices/http-api/service"
	"appgambit/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	appLogger := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(appLogger)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, appLogger *slog.Logger) error {
	db, err := database.Connect(cfg, appLogger)
	if err != nil {
		return err
	}
	defer database.Close(db)

	appCache, redisClient, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	appLogger.Info("cache ready", "driver", appCache.Name())

	var objects storage.ObjectStore
	if cfg.StorageDriver == "minio" {
		store, err := storage.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return err
		}
		objects = store
		appLogger.Info("object storage ready", "endpoint", cfg.MinioEndpoint, "bucket", cfg.MinioBucket)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	appRepo := repository.NewApplicationRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	blobRepo := repository.NewBlobRepository(db)
	tagRepo := repository.NewTagRepository(db)
	searchRepo := repository.NewSearchRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	caching := service.Caching{
		Cache:       appCache,
		Invalidator: cache.NewInvalidator(appCache, appLogger),
		Options:     cache.Options{TTL: cfg.CacheTTL, Sliding: cfg.CacheSliding},
	}

	// Services
	authSvc := service.NewAuthService(userRepo, tokenRepo, cfg, appLogger)
	imageSvc := service.NewImageService(blobRepo, appRepo, userRepo, objects, cfg.MaxUploadBytes(), appLogger)
	svc := handler.Services{
		Auth:         authSvc,
		OAuth:        service.NewOAuthService(cfg, userRepo, authSvc, service.NewPKCEService(), appCache, appLogger),
		Users:        service.NewUserService(userRepo, appRepo, ratingRepo, statsRepo, blobRepo, tokenRepo, imageSvc, caching, appLogger),
		Applications: service.NewApplicationService(appRepo, userRepo, ratingRepo, commentRepo, blobRepo, imageSvc, caching, appLogger),
		Comments:     service.NewCommentService(commentRepo, appRepo, caching, appLogger),
		Ratings:      service.NewRatingService(ratingRepo, appRepo, caching, appLogger),
		Images:       imageSvc,
		Search:       service.NewSearchService(searchRepo, appRepo, tagRepo, caching, appLogger),
		Analytics:    service.NewAnalyticsService(statsRepo, appRepo, ratingRepo, caching, appLogger),
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	limiter.StartCleanup(time.Minute, ctx.Done())

	router := handler.NewRouter(svc, handler.RouterConfig{
		CORSOrigins:        cfg.CORSOrigins,
		SecureCookies:      cfg.TLSEnabled || cfg.IsProduction(),
		MaxMultipartMemory: 32 << 20,
		RateLimiter:        limiter,
		Health: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Ping()
		},
	}, appLogger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("api server listening", "addr", srv.Addr, "tls", cfg.TLSEnabled, "env", cfg.GoEnv)
		if cfg.TLSEnabled {
			errCh <- srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	appLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, *redis.Client, error) {
	if cfg.CacheDriver == "redis" {
		client, err := cache.OpenRedis(ctx, cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewRedisCache(client, "appgambit:cache"), client, nil
	}
	mem, err := cache.NewMemoryCache(cfg.CacheSize)
	if err != nil {
		return nil, nil, err
	}
	return mem, nil, nil
}
