package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/ingressos/internal/config"
	"github.com/iliyamo/ingressos/internal/database"
	"github.com/iliyamo/ingressos/internal/handler"
	"github.com/iliyamo/ingressos/internal/middleware"
	"github.com/iliyamo/ingressos/internal/queue"
	"github.com/iliyamo/ingressos/internal/repository"
	"github.com/iliyamo/ingressos/internal/router"
	"github.com/iliyamo/ingressos/internal/service"
	"github.com/iliyamo/ingressos/internal/storage"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg)
	log := logrus.WithField("app", "ingressos")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("server stopped")
	}
	log.Info("bye")
}

func setupLogging(cfg config.Config) {
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	if cfg.Env != "dev" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	logrus.SetOutput(os.Stdout)
}

func run(ctx context.Context, cfg config.Config, log *logrus.Entry) error {
	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	rdb := config.NewRedisClient(cfg.Redis, log.WithField("component", "redis"))
	var seats *service.SeatLocker
	if rdb != nil {
		defer rdb.Close()
		seats = service.NewSeatLocker(rdb, cfg.SeatHoldTTL)
	}

	blobs, err := storage.NewFS(cfg.BlobDir, cfg.BlobBaseURL)
	if err != nil {
		return err
	}

	deps := service.Deps{
		Store: repository.NewStore(db),
		Log:   log.WithField("component", "service"),
	}
	if cfg.RabbitURL != "" {
		deps.Activity = queue.NewPublisher(cfg.RabbitURL, log.WithField("component", "activity-publisher"))
	} else {
		log.Warn("RABBITMQ_URL not set; ticket activity is not published")
	}

	sales := service.NewSales(deps, seats, cfg.QRBaseURL)
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger(log.WithField("component", "http")))
	if strings.HasPrefix(cfg.BlobBaseURL, "/") {
		e.Static(cfg.BlobBaseURL, cfg.BlobDir)
	}
	router.Register(e, router.Handlers{
		Events:     handler.NewEventHandler(service.NewEventPublisher(deps, blobs), deps.Store),
		Sessions:   handler.NewSessionHandler(service.NewSessionCloner(deps), sales),
		Sales:      handler.NewSalesHandler(sales, deps.Store),
		Redemption: handler.NewRedemptionHandler(service.NewRedemptionValidator(deps)),
		SeatHolds:  &handler.SeatHoldHandler{Locker: seats},
		Ready:      handler.Ready(db),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		Cache:     cfg.Cache,
		RateLimit: cfg.RateLimit,
		Redis:     rdb,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "db": cfg.DBDriver}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	if cfg.RabbitURL != "" {
		consumer := &queue.Consumer{URL: cfg.RabbitURL, LogDir: cfg.LogDir, Log: log.WithField("component", "activity-consumer")}
		g.Go(func() error { return consumer.Run(ctx) })
	}
	return g.Wait()
}
