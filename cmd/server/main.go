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
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venue-seating/internal/config"
	"github.com/iliyamo/venue-seating/internal/database"
	"github.com/iliyamo/venue-seating/internal/feed"
	"github.com/iliyamo/venue-seating/internal/handler"
	"github.com/iliyamo/venue-seating/internal/lock"
	"github.com/iliyamo/venue-seating/internal/metrics"
	"github.com/iliyamo/venue-seating/internal/middleware"
	"github.com/iliyamo/venue-seating/internal/model"
	"github.com/iliyamo/venue-seating/internal/repository"
	"github.com/iliyamo/venue-seating/internal/router"
	"github.com/iliyamo/venue-seating/internal/seatmap"
	"github.com/iliyamo/venue-seating/internal/service"
)

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("database unavailable")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.WithError(err).Fatal("schema migration failed")
	}

	rdb := config.NewRedisClient(ctx, config.LoadRedisConfig())
	var guard lock.Guard = lock.NewLocal()
	if rdb != nil {
		defer rdb.Close()
		guard = lock.NewRedis(rdb, cfg.InflightTTL)
		log.Info("redis connected; distributed in-flight guard, cache and rate limit enabled")
	} else {
		log.Warn("redis unavailable; using in-process guard, cache and rate limit disabled")
	}

	catalog := repository.NewCatalogRepo(db)
	holds := repository.NewSeatHoldRepo(db)
	reservations := repository.NewReservationRepo(db, holds)
	auditRepo := repository.NewAuditRepo(db)
	layout := repository.NewLayoutRepo(db)

	local := feed.NewLocal()
	var pub feed.Publisher = local
	var amqpPub *feed.AMQPPublisher
	if cfg.AMQPURL != "" {
		amqpPub, err = feed.NewAMQPPublisher(cfg.AMQPURL, log)
		if err != nil {
			log.WithError(err).Warn("broker unavailable at startup; using the in-process feed")
		} else {
			pub = amqpPub
			defer amqpPub.Close()
		}
	}

	auditor := service.NewAuditor(auditRepo, time.Now, log)
	booking := service.NewBookingService(service.BookingDeps{
		Catalog:      catalog,
		Holds:        holds,
		Reservations: reservations,
		Guard:        guard,
		Publisher:    pub,
		Auditor:      auditor,
		Log:          log,
	}, cfg.HoldDuration)

	hub := feed.NewHub(64)
	proj := seatmap.NewProjector(booking, log)
	proj.OnApply(metrics.FeedEvent)
	proj.OnApply(func(ev model.ChangeEvent) { hub.Broadcast(ev) })
	proj.OnReload(func(m *seatmap.Map) { metrics.Availability(m.Counts()) })
	proj.OnReload(func(*seatmap.Map) { hub.Broadcast(model.ReloadEvent(time.Now().UTC())) })
	apply := func(ev model.ChangeEvent) { proj.Apply(ev) }

	if amqpPub != nil {
		consumer := feed.NewConsumer(cfg.AMQPURL, apply, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("change feed consumer stopped")
			}
		}()
	} else {
		local.Subscribe(apply)
	}

	if err := proj.Reload(ctx); err != nil {
		log.WithError(err).Warn("initial availability load failed; serving an empty map until the next reload")
	}
	go proj.Run(ctx, cfg.ReloadInterval)

	admin := service.NewAdminService(service.AdminDeps{
		Admins:       cfg,
		Catalog:      catalog,
		Reservations: reservations,
		Layout:       layout,
		Audit:        auditRepo,
		Auditor:      auditor,
		Publisher:    pub,
		Reloader:     proj,
		Log:          log,
	})

	cacheCfg := config.LoadCacheConfig()
	e := newServer(log)
	router.RegisterRoutes(e, router.Public{
		Seats:  handler.NewSeatsHandler(proj, layout, cfg.HoldDuration),
		Stream: handler.Stream(hub, 25*time.Second),
		DB:     db,
		Cache:  middleware.NewRedisCache(cacheCfg, rdb, log),
	})
	router.RegisterUser(e, handler.NewBookingHandler(booking, cfg), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))
	router.RegisterAdmin(e, handler.NewAdminHandler(admin, purger(rdb, cacheCfg.Prefix, log)), cfg.JWTSecret, cfg)

	go func() {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func newServer(log *logrus.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.Logger(log))
	return e
}

func purger(rdb *redis.Client, prefix string, log *logrus.Logger) func(context.Context) {
	return func(ctx context.Context) {
		n, err := middleware.PurgeCache(ctx, rdb, prefix)
		if err != nil {
			log.WithError(err).Warn("cache purge failed")
			return
		}
		log.WithField("keys", n).Debug("response cache purged")
	}
}
