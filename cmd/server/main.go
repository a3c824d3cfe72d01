package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/iliyamo/gsr-share/internal/config"
	"github.com/iliyamo/gsr-share/internal/database"
	"github.com/iliyamo/gsr-share/internal/handler"
	"github.com/iliyamo/gsr-share/internal/logger"
	"github.com/iliyamo/gsr-share/internal/middleware"
	"github.com/iliyamo/gsr-share/internal/repository"
	"github.com/iliyamo/gsr-share/internal/router"
	"github.com/iliyamo/gsr-share/internal/service"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	migrate := pflag.Bool("migrate", false, "apply pending schema migrations before serving")
	pflag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		logger.Default().Error("load env file", "path", *envFile, "error", err)
		os.Exit(1)
	}
	cfg := config.Load()
	log := logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if *migrate {
		if _, err := database.Migrate(ctx, db, log); err != nil {
			log.Error("migrate", "error", err)
			os.Exit(1)
		}
	}

	// Redis is optional: without it rate limiting and caching are off.
	var rdb redis.UniversalClient
	if client := config.NewRedisClient(ctx); client != nil {
		rdb = client
		defer client.Close()
	} else {
		log.Warn("redis unavailable; rate limiting and response cache disabled")
	}
	cacheCfg := config.LoadCacheConfig()
	// Share code responses key on the path alone so a purge after delete
	// or cancel reaches every query variant of the link.
	shareCache, purger := middleware.NewPurgeableCache(cacheCfg, rdb)
	routes := router.Options{
		JWTSecret:      cfg.JWTSecret,
		RateLimit:      middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		RoomCache:      middleware.NewRedisCache(cacheCfg, rdb),
		ShareCodeCache: shareCache,
	}

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.RabbitURL != "" {
		events = service.NewAMQPPublisher(cfg.RabbitURL, log)
	}

	users := repository.NewUserRepo(db)
	bookings := repository.NewBookingRepo(db)
	codes := repository.NewShareCodeRepo(db)

	e := echo.New()
	e.HideBanner = true
	e.Validator = middleware.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.CORS(cfg.CORSOrigins))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db)), routes)
	router.RegisterPublic(e, &handler.RoomHandler{Rooms: repository.NewRoomRepo(db)}, routes)
	router.RegisterBookings(e, &handler.BookingHandler{Bookings: bookings, Codes: codes, Cache: purger}, routes)
	router.RegisterShareCodes(e, &handler.ShareCodeHandler{
		Codes:    codes,
		Bookings: bookings,
		Users:    users,
		Events:   events,
		Cache:    purger,
		TTL:      cfg.ShareCodeTTL,
	}, routes)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}
