package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/subosito/gotenv"

	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/basket"
	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/config"
	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/domain/issuance"
	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/domain/request"
	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/domain/stock"
	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/infra/db"
	httpx "github.com/petrovka080-cpu/rik-expo-app-sub002/internal/infra/http"
	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/infra/logger"
	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/infra/notify"
	"github.com/petrovka080-cpu/rik-expo-app-sub002/internal/issue"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

func runMigrations(dsn string, log *slog.Logger) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	_ = gotenv.Load()

	cfg, err := config.Load("config/example.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	if err := runMigrations(cfg.Postgres.DSN, log); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	tg, err := notify.New(cfg.Telegram.Token, cfg.Telegram.AdminChatID, log)
	if err != nil {
		log.Error("telegram init failed", "err", err)
		return
	}
	if tg == nil {
		log.Info("telegram notifications disabled")
	}

	stocks := stock.NewRepo(pool)
	requests := request.NewRepo(pool)
	ledger := issuance.NewRepo(pool)

	var notifier issue.Notifier
	if tg != nil {
		notifier = tg
	}
	engine := issue.NewService(
		log, ledger, stocks, requests,
		basket.NewStore(),
		time.Duration(cfg.Cache.TTLSeconds)*time.Second,
		notifier,
	)

	api := httpx.NewHandler(log, engine, ledger)
	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, api)
	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
