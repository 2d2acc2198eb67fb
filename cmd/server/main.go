package main // Entry point package

import (
	"context"
	"errors"
	"log" // used only until the zap logger exists
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/tour-backoffice/internal/allocation"
	"github.com/iliyamo/tour-backoffice/internal/config" // Internal config loader
	"github.com/iliyamo/tour-backoffice/internal/database"
	"github.com/iliyamo/tour-backoffice/internal/handler"
	"github.com/iliyamo/tour-backoffice/internal/lock"
	"github.com/iliyamo/tour-backoffice/internal/logger"
	"github.com/iliyamo/tour-backoffice/internal/middleware"
	"github.com/iliyamo/tour-backoffice/internal/model"
	"github.com/iliyamo/tour-backoffice/internal/queue"
	"github.com/iliyamo/tour-backoffice/internal/repository"
	"github.com/iliyamo/tour-backoffice/internal/roster"
	"github.com/iliyamo/tour-backoffice/internal/router" // Internal router setup
	queue_publisher "github.com/iliyamo/tour-backoffice/internal/service"
)

func main() {
	cfg := config.Load() // Load environment config

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		return err
	}

	// Redis is optional: without it there is no rate limiting and no
	// roster lock.
	rdb := config.NewRedisClient(cfg.Redis, zl.Named("redis"))
	if rdb == nil {
		zl.Warn("redis unavailable; rate limiting and roster lock disabled")
	} else {
		defer rdb.Close()
	}
	var locker roster.Locker
	if rdb != nil && cfg.Lock.Enabled {
		locker = lock.New(rdb, cfg.Lock, zl.Named("lock"))
	}

	var (
		rosterEvents roster.EventPublisher
		allocEvents  allocation.EventPublisher
	)
	if cfg.EventsOn {
		pub := queue_publisher.New(cfg.AMQPURL, zl.Named("publisher"))
		defer pub.Close()
		rosterEvents, allocEvents = pub, pub
	}

	reservations := repository.NewReservationRepo(db)
	tours := repository.NewTourRepo(db)
	ledgers := repository.NewAllocationRepo(db)
	staff := repository.NewStaffRepo(db)
	tokens := repository.NewTokenRepo(db)
	if err := ensureAdmin(ctx, cfg, staff, zl); err != nil {
		return err
	}

	rosterSvc := roster.NewService(reservations, tours, rosterEvents, locker, zl.Named("roster"))
	allocSvc := allocation.NewService(ledgers, tours, allocEvents, zl.Named("allocation"))

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(zl.Named("http")))

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, staff, tokens, zl.Named("auth")), cfg.JWTSecret)
	router.RegisterTours(e, router.Tours{
		Tour:       handler.NewTourHandler(tours),
		Roster:     handler.NewRosterHandler(rosterSvc, zl.Named("roster")),
		Allocation: handler.NewAllocationHandler(allocSvc),
	}, cfg.JWTSecret, middleware.NewTokenBucket(cfg.RateLimit, rdb, zl.Named("ratelimit")))

	g, gctx := errgroup.WithContext(ctx)

	addr := ":" + cfg.Port // Address string with port
	g.Go(func() error {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		zl.Info("shutting down")
		return e.Shutdown(shutdownCtx)
	})
	if cfg.AuditOn {
		consumer := &queue.AuditConsumer{URL: cfg.AMQPURL, Dir: "logs", Log: zl.Named("audit")}
		g.Go(func() error {
			if err := consumer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// ensureAdmin creates the bootstrap ADMIN account named by ADMIN_EMAIL so a
// fresh database has someone who can log in.  An existing account is left
// untouched.
func ensureAdmin(ctx context.Context, cfg config.Config, staff *repository.StaffRepo, zl *zap.Logger) error {
	if cfg.AdminEmail == "" {
		return nil
	}
	id, err := staff.Create(ctx, cfg.AdminEmail, "Administrator", cfg.AdminPass, model.StaffRoleAdmin, cfg.BcryptCost)
	switch {
	case errors.Is(err, repository.ErrConflict):
		return nil
	case err != nil:
		return err
	}
	zl.Info("bootstrap admin created", zap.Uint64("staff_id", id), zap.String("email", cfg.AdminEmail))
	return nil
}
