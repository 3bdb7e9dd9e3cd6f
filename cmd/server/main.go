package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crewline/crewline-backend/internal/config"
	"github.com/crewline/crewline-backend/internal/database"
	"github.com/crewline/crewline-backend/internal/gate"
	"github.com/crewline/crewline-backend/internal/handlers"
	"github.com/crewline/crewline-backend/internal/middleware"
	"github.com/crewline/crewline-backend/internal/routes"
	"github.com/crewline/crewline-backend/internal/routing"
	"github.com/crewline/crewline-backend/internal/service"
	"github.com/crewline/crewline-backend/internal/store"
	mongostore "github.com/crewline/crewline-backend/internal/store/mongo"
	pgstore "github.com/crewline/crewline-backend/internal/store/postgres"
	"github.com/crewline/crewline-backend/pkg/logger"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func main() {
	cfg := config.LoadConfig()

	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}
	logger.Init(env)

	logger.Info().Str("environment", env).Msg("Starting Crewline Backend...")

	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Storage engines: constructed once, threaded through explicitly
	pgDB, err := database.NewPostgres(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	if err := pgstore.Migrate(pgDB); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate PostgreSQL schema")
	}
	logger.Info().Msg("Connected to PostgreSQL with connection pooling (max: 25, idle: 10)")

	engines := []store.Store{pgstore.New(pgDB)}

	if cfg.MongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mongoDB, err := database.NewMongo(ctx, cfg)
		if err != nil {
			cancel()
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		if err := mongostore.EnsureIndexes(ctx, mongoDB); err != nil {
			cancel()
			logger.Fatal().Err(err).Msg("Failed to create MongoDB indexes")
		}
		cancel()
		engines = append(engines, mongostore.New(mongoDB))
		logger.Info().Msg("Connected to MongoDB")
	} else {
		logger.Warn().Msg("MONGO_URI not set, document engine disabled")
	}

	rdb := database.NewRedis(cfg)

	registry := store.NewRegistry(engines...)
	selector, err := routing.NewSelector(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid region routing configuration")
	}

	// The primary engine doubles as the user directory
	resolver := &gate.Resolver{
		Directory: engines[0],
		Selector:  selector,
		Registry:  registry,
	}
	permGate := gate.New(resolver)

	conversationSvc := service.NewConversationService(resolver)
	messageSvc := service.NewMessageService(resolver, permGate)
	contactSvc := service.NewContactService(resolver, conversationSvc)
	readModel := service.NewReadModel(resolver)

	h := handlers.New(resolver, permGate, conversationSvc, messageSvc, contactSvc, readModel)
	auth := middleware.AuthMiddleware(cfg.JWTSecret, resolver.Directory)

	r := gin.New()
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.ErrorHandlerMiddleware())
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg))

	// General API: 10/sec per IP
	generalLimiter := middleware.NewIPRateLimiter(rate.Limit(10.0), 50)
	r.Use(middleware.RateLimitMiddleware(generalLimiter))

	api := r.Group("/api")
	{
		routes.RegisterChatRoutes(api, h, auth, rdb)
		routes.RegisterContactRoutes(api, h, auth)
	}

	r.GET("/health", func(c *gin.Context) {
		dbStatus := "ok"
		sqlDB, err := pgDB.DB()
		if err != nil || sqlDB.Ping() != nil {
			dbStatus = "error"
		}

		redisStatus := "ok"
		if _, err := rdb.Ping(c.Request.Context()).Result(); err != nil {
			redisStatus = "error"
		}

		status := "ok"
		if dbStatus != "ok" {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status": status,
			"checks": gin.H{
				"database": dbStatus,
				"redis":    redisStatus,
			},
		})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Forced shutdown")
	}
	logger.Info().Msg("Server exited")
}
