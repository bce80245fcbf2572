package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/studyroom-seat-reservation/internal/cache"
	"github.com/iliyamo/studyroom-seat-reservation/internal/config"
	"github.com/iliyamo/studyroom-seat-reservation/internal/database"
	"github.com/iliyamo/studyroom-seat-reservation/internal/handler"
	"github.com/iliyamo/studyroom-seat-reservation/internal/logger"
	"github.com/iliyamo/studyroom-seat-reservation/internal/middleware"
	"github.com/iliyamo/studyroom-seat-reservation/internal/queue"
	"github.com/iliyamo/studyroom-seat-reservation/internal/router"
	"github.com/iliyamo/studyroom-seat-reservation/internal/scheduler"
	"github.com/iliyamo/studyroom-seat-reservation/internal/service"
	"github.com/iliyamo/studyroom-seat-reservation/internal/storage"
)

func main() {
	// A missing .env is fine; real deployments set the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	cfg := config.Load()

	lg, err := logger.New(cfg.LogDir, "studyroom")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Close()

	db, err := database.Open(database.Settings{
		User:            cfg.DBUser,
		Pass:            cfg.DBPass,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		lg.Error("DATABASE", "connect: "+err.Error())
		os.Exit(1)
	}
	defer db.Close()
	if cfg.AutoMigrate {
		v, err := database.Migrate(db)
		if err != nil {
			lg.Error("DATABASE", "migrate: "+err.Error())
			os.Exit(1)
		}
		lg.LogDatabase("MIGRATE", "schema_migrations", fmt.Sprintf("schema at version %d", v))
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		lg.Warn("REDIS", "unreachable; caches and rate limiting are disabled")
	} else {
		defer rdb.Close()
	}
	seatCache := cache.New(rdb, cfg.SeatCacheTTL, lg)
	responses := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, lg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Every committed change reaches the caches; the broker is optional.
	notifier := service.Fanout{seatCache, responses}
	if cfg.EventsEnabled {
		pub := queue.NewPublisher(cfg.RabbitURL, lg)
		defer pub.Close()
		notifier = append(notifier, pub)

		consumer := queue.NewConsumer(cfg.RabbitURL, cfg.LogDir, lg)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("CONSUMER", err.Error())
			}
		}()
	}

	deps := service.Deps{
		Stores:   service.NewSQLStores(db),
		Tx:       service.SQLTransactor{DB: db},
		Notifier: notifier,
		Log:      lg,
		Loc:      cfg.TimeZone,
	}
	auth := service.AuthConfig{Secret: cfg.JWTSecret, TTL: cfg.JWTTTL, BcryptCost: cfg.BcryptCost}
	images := storage.NewImageStore(cfg.UploadDir, cfg.UploadBaseURL)

	users := service.NewUserService(deps, auth)
	admins := service.NewAdminService(deps, auth)
	reservations := service.NewReservationService(deps)

	if created, err := admins.EnsureBootstrapAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		lg.Error("BOOTSTRAP", "ensure admin: "+err.Error())
	} else if !created && cfg.AdminUsername == "" {
		lg.Warn("BOOTSTRAP", "ADMIN_USERNAME not set; no admin bootstrapped")
	}

	schedCfg := config.LoadSchedulerConfig()
	var sched *scheduler.Scheduler
	if schedCfg.Enabled {
		sched, err = scheduler.New(schedCfg, scheduler.Jobs{Reservations: reservations, Users: users}, lg)
		if err != nil {
			lg.Error("SCHEDULER", err.Error())
			os.Exit(1)
		}
		sched.Start()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(lg))
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dM", storage.MaxUploadBytes>>20+1)))

	router.Register(e, router.Handlers{
		Health:            handler.Health(db, rdb),
		Auth:              handler.NewAuthHandler(users, admins, lg),
		Users:             handler.NewUserHandler(users, lg),
		Reservations:      handler.NewReservationHandler(reservations, lg),
		Availability:      handler.NewAvailabilityHandler(service.NewAvailabilityService(deps, seatCache), lg),
		Rooms:             handler.NewStudyRoomHandler(service.NewStudyRoomService(deps, seatCache, images), lg),
		Seats:             handler.NewSeatHandler(service.NewSeatService(deps), lg),
		AdminReservations: handler.NewAdminReservationHandler(service.NewAdminReservationService(deps), lg),
		Feedback:          handler.NewFeedbackHandler(service.NewFeedbackService(deps), lg),
	}, router.Options{
		JWTSecret:     cfg.JWTSecret,
		RateLimit:     middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, lg),
		ResponseCache: responses.Middleware(),
		UploadDir:     cfg.UploadDir,
		UploadPrefix:  cfg.UploadBaseURL,
	})

	addr := ":" + cfg.Port
	go func() {
		lg.Info("SERVER", fmt.Sprintf("listening on %s (env=%s, tz=%s)", addr, cfg.Env, cfg.TimeZone))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("SERVER", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	lg.Info("SERVER", "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("SERVER", "shutdown: "+err.Error())
	}
}
