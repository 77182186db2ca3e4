package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"

	platformapi "github.com/impactgrid/platform/api/echo"
	"github.com/impactgrid/platform/cache"
	redisstore "github.com/impactgrid/platform/cache/redis"
	"github.com/impactgrid/platform/config"
	"github.com/impactgrid/platform/internal/auth"
	"github.com/impactgrid/platform/internal/federation"
	"github.com/impactgrid/platform/log"
	"github.com/impactgrid/platform/mongodb"
	"github.com/impactgrid/platform/services"
	"github.com/impactgrid/platform/tracing"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Setup(cfg.LogLevel, cfg.LogPretty)
	zlog.Info().
		Str("http_port", cfg.HTTPPort).
		Str("mongo_db", cfg.MongoDBName).
		Bool("redis", cfg.RedisAddr != "").
		Bool("google", cfg.GoogleEnabled()).
		Msg("starting impactgrid platform server")

	tp, err := tracing.InitTracerProvider("")
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Err(err).Msg("tracer provider shutdown failed")
		}
	}()

	ctx := context.Background()
	if err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialize MongoDB connection")
	}
	defer func() {
		if err := mongodb.Disconnect(context.Background()); err != nil {
			zlog.Error().Err(err).Msg("mongodb disconnect failed")
		}
	}()
	db := mongodb.GetDB()

	// Repositories
	profileRepo, err := mongodb.NewProfileRepositoryMongo(ctx, db)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialize ProfileRepository")
	}
	campaignRepo, err := mongodb.NewCampaignRepositoryMongo(ctx, db)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialize CampaignRepository")
	}
	sessionRepo, err := mongodb.NewSessionRepositoryMongo(ctx, db)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialize SessionRepository")
	}

	// Session cache: Redis when configured, in-process otherwise.
	var sessionStore cache.SessionStore
	if cfg.RedisAddr != "" {
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			zlog.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to redis")
		}
		sessionStore = redisstore.NewSessionStore(redisClient, "impactgrid")
	} else {
		sessionStore = cache.NewMemorySessionStore()
	}
	defer sessionStore.Close()

	// Federated providers
	providers := map[string]federation.OAuth2Provider{}
	if cfg.GoogleEnabled() {
		google, err := federation.NewGoogleProvider(federation.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
		if err != nil {
			zlog.Fatal().Err(err).Msg("failed to initialize Google provider")
		}
		providers["google"] = google
	}

	// Services
	passwordHasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	tokenService := services.NewTokenService(sessionStore, sessionRepo, time.Duration(cfg.SessionTTLHour)*time.Hour)
	authService := services.NewAuthService(profileRepo, tokenService, passwordHasher, providers)
	profileService := services.NewProfileService(profileRepo)
	campaignService := services.NewCampaignService(campaignRepo)
	userService := services.NewUserService(profileRepo, tokenService)

	// HTTP API
	api := platformapi.NewPlatformAPI(authService, profileService, campaignService, userService)
	defer api.Close()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	api.RegisterRoutes(e)

	go func() {
		if err := e.Start(":" + cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("http server failed")
		}
	}()
	zlog.Info().Str("port", cfg.HTTPPort).Msg("http server listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("http server shutdown failed")
	}
}
