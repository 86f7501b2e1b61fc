package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/event-booking/internal/auth"
	"github.com/iliyamo/event-booking/internal/booking"
	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/database"
	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/logger"
	"github.com/iliyamo/event-booking/internal/middleware"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/router"
	"github.com/iliyamo/event-booking/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.IsProd(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	db, err := database.Open(database.Options{
		User:         cfg.DBUser,
		Pass:         cfg.DBPass,
		Host:         cfg.DBHost,
		Port:         cfg.DBPort,
		Name:         cfg.DBName,
		MaxOpenConns: cfg.DBMaxOpenConns,
	})
	if err != nil {
		lg.Fatal("database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	// Redis is optional: without it tokens are not checked for revocation
	// and the limiter and cache pass requests through.
	var (
		rdb     *redis.Client
		revoked auth.RevocationStore
	)
	if rdb, err = config.NewRedisClient(config.LoadRedisConfig()); err != nil {
		lg.Warn("redis unavailable, running without revocation, rate limit and cache", zap.Error(err))
	} else {
		defer func() { _ = rdb.Close() }()
		revoked = auth.NewRedisRevocationStore(rdb, "")
	}

	var pub service.ActivityPublisher = service.NopPublisher{}
	if cfg.AMQPURL != "" {
		pub = service.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue, lg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ConsumerEnabled && cfg.AMQPURL != "" {
		consumer := queue.NewConsumer(cfg.AMQPURL, cfg.AMQPQueue, lg)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("activity consumer stopped", zap.Error(err))
			}
		}()
	}

	events := repository.NewEventRepo(db)
	venues := repository.NewVenueRepo(db)
	timeslots := repository.NewTimeslotRepo(db)
	reservations := repository.NewReservationRepo(db)
	genres := repository.NewGenreRepo(db)

	retry := booking.DefaultRetryConfig()
	retry.MaxRetries = cfg.Booking.MaxRetries
	retry.InitialInterval = cfg.Booking.RetryInterval
	retry.MaxInterval = cfg.Booking.MaxRetryInterval
	coord := booking.NewCoordinator(db, lg, cfg.Booking.OperationTimeout, retry)
	scheduler := booking.NewScheduler(coord, timeslots, events, genres, venues, reservations, lg)
	book := booking.NewBook(coord, events, venues, reservations, lg)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(lg))

	router.RegisterAll(e, db,
		router.Handlers{
			Events:       handler.NewEventHandler(scheduler, events, pub, lg),
			Reservations: handler.NewReservationHandler(book, events, reservations, pub, lg),
			Venues:       handler.NewVenueHandler(venues, timeslots, lg),
			Genres:       handler.NewGenreHandler(genres, lg),
		},
		router.Middleware{
			Auth:  middleware.JWTAuth(cfg.JWTSecret, revoked, lg),
			Limit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, lg),
			Cache: middleware.NewRedisCache(config.LoadCacheConfig(), rdb, lg),
		},
	)

	go func() {
		addr := ":" + cfg.Port
		lg.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown", zap.Error(err))
	}
}
