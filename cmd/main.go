package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"duocall/backend/internal/api/handler"
	"duocall/backend/internal/chathub"
	"duocall/backend/internal/config"
	"duocall/backend/internal/ledger"
	"duocall/backend/internal/logger"
	"duocall/backend/internal/metrics"
	"duocall/backend/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const archiveBuffer = 1024

// deps are the optional backends chosen by config.
type deps struct {
	ledger  ledger.Ledger
	pruner  chathub.Pruner
	rdb     *redis.Client
	archive *storage.Archiver
}

func setupDependencies(ctx context.Context, cfg config.Config, log *slog.Logger) (*deps, error) {
	d := &deps{}

	switch cfg.LedgerBackend {
	case config.LedgerRedis:
		d.rdb = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		if err := d.rdb.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		d.ledger = ledger.NewRedisLedger(d.rdb, cfg.LedgerRetention)
		log.Info("ledger.redis", "addr", cfg.RedisAddr, "retention", cfg.LedgerRetention)
	default:
		mem := ledger.NewMemoryLedger(cfg.LedgerRetention)
		d.ledger, d.pruner = mem, mem
		log.Info("ledger.memory", "retention", cfg.LedgerRetention)
	}

	if cfg.PGDSN != "" {
		db, err := gorm.Open(postgres.Open(cfg.PGDSN), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		svc := storage.NewStorageService(db)
		if err := svc.Migrate(); err != nil {
			return nil, err
		}
		d.archive = storage.NewArchiver(svc, archiveBuffer, log.With("component", "archive"))
		log.Info("archive.enabled")
	}
	return d, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Service: "duocall",
		Env:     cfg.Env,
		Backend: logger.Backend(cfg.LogBackend),
		Debug:   cfg.LogDebug,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := setupDependencies(ctx, cfg, log)
	if err != nil {
		log.Error("dependencies", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	opts := chathub.Options{
		RoomTTL: cfg.RoomTTL,
		Ledger:  d.ledger,
		Metrics: rec,
		Logger:  log.With("component", "hub"),
	}
	if d.archive != nil {
		opts.Archive = d.archive
	}
	hub := chathub.NewManagerService(opts)
	sweeper := chathub.NewSweeper(hub, cfg.SweepInterval, d.pruner, log.With("component", "sweeper"))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); hub.Run(ctx) }()
	go func() { defer wg.Done(); sweeper.Run(ctx) }()

	// The archive worker outlives the hub so closing records still drain.
	archiveCtx, stopArchive := context.WithCancel(context.Background())
	archiveDone := make(chan struct{})
	if d.archive != nil {
		go func() { defer close(archiveDone); d.archive.Run(archiveCtx) }()
	} else {
		close(archiveDone)
	}

	h := handler.NewHandler(hub, rec, cfg.AdminSecret, cfg.CORSAllow)
	h.Log = log.With("component", "http")
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewRouter(h, cfg.CORSAllow),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		log.Info("http.listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http.serve", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown.begin")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http.shutdown", "err", err)
	}

	wg.Wait()
	stopArchive()
	<-archiveDone

	if d.rdb != nil {
		if err := d.rdb.Close(); err != nil {
			log.Error("redis.close", "err", err)
		}
	}
	log.Info("shutdown.done")
}
