package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/iliyamo/receipt-booklet-ledger/internal/config"
	"github.com/iliyamo/receipt-booklet-ledger/internal/handler"
	"github.com/iliyamo/receipt-booklet-ledger/internal/logger"
	"github.com/iliyamo/receipt-booklet-ledger/internal/metrics"
	"github.com/iliyamo/receipt-booklet-ledger/internal/middleware"
	"github.com/iliyamo/receipt-booklet-ledger/internal/queue"
	"github.com/iliyamo/receipt-booklet-ledger/internal/router"
	"github.com/iliyamo/receipt-booklet-ledger/internal/service"
	"github.com/iliyamo/receipt-booklet-ledger/internal/storage"
	"github.com/iliyamo/receipt-booklet-ledger/internal/utils"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	logg, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		logg.Fatal("open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() { _ = backend.Close() }()

	adminHash := cfg.AdminPasswordHash
	if adminHash == "" {
		if adminHash, err = utils.HashPassword(cfg.AdminPassword, cfg.BcryptCost); err != nil {
			logg.Fatal("hash admin password", zap.Error(err))
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledger := metrics.NewLedger(reg)

	rdb := config.NewRedisClient()
	if rdb == nil {
		logg.Warn("redis unavailable; response cache and rate limiting disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	var events handler.EventPublisher
	if cfg.AMQPURL != "" {
		events = service.NewPublisher(cfg.AMQPURL, logg)
		consumer := queue.NewAuditConsumer(cfg.AMQPURL, cfg.LogDir, logg)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	} else {
		logg.Info("AMQP_URL not set; donation events disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logg))

	router.Register(e, router.Deps{
		Donations: handler.NewDonationHandler(backend.Store, cfg.Scheme, cfg.Layout, events, ledger, logg),
		Admin:     handler.NewAdminHandler(adminHash, cfg.JWTSecret, cfg.AccessTTLMin, logg),
		JWTSecret: cfg.JWTSecret,
		Cache:     middleware.NewResponseCache(config.LoadCacheConfig(), rdb, logg),
		WriteRate: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logg),
		Gatherer:  reg,
	})

	addr := ":" + cfg.Port
	go func() {
		logg.Info("listening",
			zap.String("addr", addr),
			zap.String("store", cfg.Store.Driver),
			zap.Int("booklets", cfg.Scheme.TotalBooklets),
			zap.Int("capacity", cfg.Scheme.Capacity),
			zap.String("blocks", config.FormatBlockFloors(cfg.Layout.Floors)))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logg.Error("shutdown", zap.Error(err))
	}
}
