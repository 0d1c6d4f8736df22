package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	retentionhttp "github.com/casavia/retention/adapters/http"
	"github.com/casavia/retention/core"
	pgmigrations "github.com/casavia/retention/migrations/postgres"
	"github.com/casavia/retention/scheduler"
	memorystore "github.com/casavia/retention/storage/memory"
	pgstore "github.com/casavia/retention/storage/postgres"
	redisstore "github.com/casavia/retention/storage/redis"
)

type config struct {
	ListenAddr     string
	DBURL          string
	RedisURL       string
	ClientOrigin   string
	Timezone       string
	AutoPurgeCron  string
	ReminderCron   string
	TokenGCCron    string
	GraceDays      int
	MigrateOnStart bool
}

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "retention:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cfg := loadConfig()
	if err := run(cfg, log); err != nil {
		log.Fatal("retention devserver exited", zap.Error(err))
	}
}

func loadConfig() *config {
	return &config{
		ListenAddr:     envOr("RETENTION_LISTEN_ADDR", ":8080"),
		DBURL:          firstEnv("DB_URL", "DATABASE_URL"),
		RedisURL:       strings.TrimSpace(os.Getenv("REDIS_URL")),
		ClientOrigin:   envOr("RETENTION_CLIENT_ORIGIN", "http://localhost:3000"),
		Timezone:       envOr("RETENTION_TZ", "Africa/Nairobi"),
		AutoPurgeCron:  envOr("RETENTION_AUTO_PURGE_CRON", "10 3 * * *"),
		ReminderCron:   envOr("RETENTION_REMINDER_CRON", "0 9 * * *"),
		TokenGCCron:    envOr("RETENTION_TOKEN_GC_CRON", "30 4 * * *"),
		GraceDays:      envInt("RETENTION_GRACE_DAYS", 30),
		MigrateOnStart: envBool("RETENTION_MIGRATE_ON_START", true),
	}
}

func run(cfg *config, log *zap.Logger) error {
	ctx := context.Background()

	var store core.Store
	if cfg.DBURL != "" {
		if cfg.MigrateOnStart {
			if err := runMigrations(ctx, cfg.DBURL); err != nil {
				return err
			}
		}
		pool, err := pgxpool.New(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		store = pgstore.New(pool)
		log.Info("using postgres store")
	} else {
		store = memorystore.NewStore()
		log.Warn("DB_URL unset, using in-memory store (dev only)")
	}

	svc := core.NewService(store, core.Options{
		GraceWindow:  time.Duration(cfg.GraceDays) * 24 * time.Hour,
		ClientOrigin: cfg.ClientOrigin,
	})

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		svc.WithKV(redisstore.NewKV(redis.NewClient(opt)))
		log.Info("reminder dedupe backed by redis")
	} else {
		svc.WithKV(memorystore.NewKV())
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	sched := scheduler.New(loc)
	if err := sched.Add("auto-purge", cfg.AutoPurgeCron, func(ctx context.Context) error {
		res, err := svc.RunAutoPurge(ctx)
		if err != nil {
			return err
		}
		log.Info("auto-purge sweep",
			zap.Int("scanned", res.Scanned), zap.Int("purged", res.Purged),
			zap.Int("skipped", res.Skipped), zap.Int("errors", len(res.Errors)))
		return nil
	}); err != nil {
		return err
	}
	if err := sched.Add("reminders", cfg.ReminderCron, func(ctx context.Context) error {
		res, err := svc.RunReminderSweep(ctx)
		if err != nil {
			return err
		}
		log.Info("reminder sweep",
			zap.Int("scanned", res.Scanned), zap.Int("reminders", res.Reminders),
			zap.Int("final_warnings", res.Finals), zap.Int("skipped", res.Skipped),
			zap.Int("errors", len(res.Errors)))
		return nil
	}); err != nil {
		return err
	}
	if err := sched.Add("token-gc", cfg.TokenGCCron, func(ctx context.Context) error {
		res, err := svc.RunTokenGC(ctx)
		if err != nil {
			return err
		}
		log.Info("token gc", zap.Int("removed", res.Scanned))
		return nil
	}); err != nil {
		return err
	}
	sched.Start()

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           retentionhttp.NewService(svc).APIHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	log.Info("retention devserver listening", zap.String("addr", cfg.ListenAddr), zap.Strings("jobs", sched.Names()))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Warn("scheduler stop", zap.Error(err))
	}
	return server.Shutdown(shutdownCtx)
}

func runMigrations(ctx context.Context, dbURL string) error {
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer func() { _ = db.Close() }()
	return pgmigrations.Migrate(ctx, db)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
