// Package main runs the talent-management HTTP server with the booking feed and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/talentdesk/backend/config"
	"github.com/talentdesk/backend/internal/artists"
	"github.com/talentdesk/backend/internal/auth"
	"github.com/talentdesk/backend/internal/bookings"
	"github.com/talentdesk/backend/internal/emaillogs"
	"github.com/talentdesk/backend/internal/health"
	"github.com/talentdesk/backend/internal/metrics"
	"github.com/talentdesk/backend/internal/middleware"
	"github.com/talentdesk/backend/internal/models"
	"github.com/talentdesk/backend/internal/notify"
	"github.com/talentdesk/backend/internal/realtime"
	"github.com/talentdesk/backend/pkg/database"
	"github.com/talentdesk/backend/pkg/queue"
	"github.com/talentdesk/backend/pkg/redis"
	"github.com/talentdesk/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.Sentry.Environment,
		}); err != nil {
			logger.Warn("sentry disabled", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx := context.Background()
	poolOpts := database.PoolOptions{
		MaxConns:        int32(cfg.Database.MaxConns),
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	}
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), poolOpts, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	gormDB, err := database.NewGorm(cfg.Database.DSN(), poolOpts, logger)
	if err != nil {
		logger.Fatal("gorm", zap.Error(err))
	}
	bookingRepo := bookings.NewRepository(gormDB)
	if err := bookingRepo.AutoMigrate(); err != nil {
		logger.Fatal("migrate bookings", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// A nil interface, not a nil *storage.S3, when S3 is unavailable.
	var objects artists.ObjectStore
	if cfg.Storage.Region != "" && cfg.Storage.ProfilePicturesBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:                cfg.Storage.Region,
			AccessKeyID:           cfg.Storage.AccessKeyID,
			SecretAccessKey:       cfg.Storage.SecretAccessKey,
			ProfilePicturesBucket: cfg.Storage.ProfilePicturesBucket,
			Endpoint:              cfg.Storage.Endpoint,
			PublicBaseURL:         cfg.Storage.PublicBaseURL,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled; profile pictures will be skipped", zap.Error(err))
		} else {
			objects = s3Client
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	sessions := auth.NewSessionStore(rdb.Client)
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, sessions, logger)

	// Welcome emails
	emailLogRepo := emaillogs.NewRepository(pool)
	var sender notify.Sender
	if cfg.Email.Delivery == config.EmailDeliveryQueue {
		sender = notify.NewQueueSender(queue.NewQueue(rdb.Client, logger))
	} else {
		sender, err = notify.NewProviderSender(cfg.Email, logger)
		if err != nil {
			logger.Fatal("email sender", zap.Error(err))
		}
	}
	dispatcher := notify.NewDispatcher(sender, notify.DispatcherOptions{
		Timeout: cfg.Email.SendTimeout,
		Logs:    emailLogRepo,
		Metrics: recorder,
		Logger:  logger,
		OnError: func(err error) { sentry.CaptureException(err) },
	})

	// Artists
	artistRepo := artists.NewRepository(pool)
	artistService := artists.NewService(authRepo, artistRepo, objects, dispatcher, recorder, logger, artists.Options{
		Compensate: cfg.Provisioning.Compensate,
	})
	artistHandler := artists.NewHandler(artistService, logger)
	emailLogHandler := emaillogs.NewHandler(emailLogRepo, artistService, logger)

	// Bookings and the live feed
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	bookingHandler := bookings.NewHandler(bookingRepo, hub, logger)

	healthHandler := health.NewHandler(map[string]health.Pinger{
		"postgres": pool,
		"redis":    health.PingFunc(rdb.Healthy),
	})

	authLimiter := middleware.NewIPRateLimiter(cfg.RateLimit.AuthPerMinute, cfg.RateLimit.AuthBurst)
	manager := middleware.RequireRole(models.RoleManager)

	wsAuth := func(ctx context.Context, token string) (*auth.Claims, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return nil, err
		}
		revoked, err := sessions.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, errors.New("token revoked")
		}
		return claims, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Sentry.DSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics(recorder))

	router.GET("/health", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(metrics.Handler(registry)))

	authGroup := router.Group("/auth")
	{
		limited := middleware.RateLimit(authLimiter)
		authGroup.POST("/sign-up", limited, authHandler.SignUp)
		authGroup.POST("/sign-in", limited, authHandler.SignIn)
	}

	api := router.Group("")
	api.Use(middleware.JWT(jwtService, sessions, logger))
	{
		api.POST("/auth/sign-out", authHandler.SignOut)
		api.GET("/auth/me", authHandler.Me)

		api.GET("/artists", artistHandler.List)
		api.POST("/artists", manager, artistHandler.Create)
		api.PUT("/artists", artistHandler.Update)
		api.DELETE("/artists", manager, artistHandler.Delete)
		api.GET("/artists/:id", artistHandler.Get)
		api.PUT("/artists/:id", artistHandler.Update)
		api.DELETE("/artists/:id", manager, artistHandler.Delete)
		api.GET("/artists/:id/emails", manager, emailLogHandler.ListForArtist)
		api.GET("/artiste/:id", artistHandler.Profile)

		api.POST("/bookings", bookingHandler.Create)
		api.GET("/bookings/:artistId", bookingHandler.List)
		api.POST("/bookings/:artistId", bookingHandler.Create)
		api.PUT("/bookings/:artistId", bookingHandler.Update)
		api.DELETE("/bookings/:artistId", bookingHandler.Delete)
	}

	// Browsers cannot set headers on a WebSocket handshake, so the token rides in the query.
	router.GET("/ws", realtime.ServeWs(hub, realtime.NewUpgrader(cfg.Server.CORSAllowedOrigins), wsAuth, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("email dispatcher did not drain", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
