package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/tutorbase/ledger-api/api/swagger"
	"github.com/tutorbase/ledger-api/internal/handler"
	"github.com/tutorbase/ledger-api/internal/middleware"
	"github.com/tutorbase/ledger-api/internal/repository"
	"github.com/tutorbase/ledger-api/internal/service"
	"github.com/tutorbase/ledger-api/pkg/cache"
	"github.com/tutorbase/ledger-api/pkg/config"
	"github.com/tutorbase/ledger-api/pkg/database"
	"github.com/tutorbase/ledger-api/pkg/logger"
	corsmiddleware "github.com/tutorbase/ledger-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tutorbase/ledger-api/pkg/middleware/requestid"
)

// @title Tutor Ledger API
// @version 0.1.0
// @description Marketplace ledger for tutor identities, escrowed sessions and ratings
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

	if cfg.Database.Migrate {
		if err := database.Migrate(db); err != nil {
			logr.Sugar().Fatalw("failed to run migrations", "error", err)
		}
	}

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && cacheRepo != nil)
	seq := service.NewSequencer()

	tutorRepo := repository.NewTutorRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	balanceRepo := repository.NewBalanceRepository(db)
	eventRepo := repository.NewEventRepository(db)
	userRepo := repository.NewUserRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	registrySvc := service.NewRegistryService(db, tutorRepo, eventRepo, cacheSvc, seq, validate, logr, metricsSvc)
	ledgerSvc := service.NewLedgerService(db, tutorRepo, sessionRepo, balanceRepo, eventRepo, cacheSvc, seq, validate, logr, metricsSvc)
	exportSvc := service.NewExportService(registrySvc, ledgerSvc, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	tutorHandler := handler.NewTutorHandler(registrySvc, exportSvc)
	sessionHandler := handler.NewSessionHandler(ledgerSvc)
	ledgerHandler := handler.NewLedgerHandler(ledgerSvc, eventRepo)

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
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)

		api.GET("/tutors", tutorHandler.ByOwner)
		api.GET("/tutors/active", tutorHandler.Active)
		api.GET("/tutors/:tokenId", tutorHandler.Get)
		api.GET("/tutors/:tokenId/sessions", sessionHandler.List)
		api.GET("/tutors/:tokenId/sessions/:index", sessionHandler.Get)

		api.GET("/events", ledgerHandler.Events)
		api.GET("/balances/:address", ledgerHandler.Balance)
		api.GET("/ledger/escrow", ledgerHandler.Escrow)

		if cfg.Exports.Enabled {
			api.GET("/tutors/:tokenId/earnings/export", tutorHandler.Earnings)
		}

		authed := api.Group("")
		authed.Use(middleware.JWT(authSvc))
		{
			authed.POST("/tutors", tutorHandler.Register)
			authed.POST("/tutors/:tokenId/deactivate", tutorHandler.Deactivate)
			authed.POST("/tutors/:tokenId/reactivate", tutorHandler.Reactivate)
			authed.POST("/tutors/:tokenId/sessions", sessionHandler.Book)
			authed.POST("/tutors/:tokenId/sessions/:index/complete", sessionHandler.Complete)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
