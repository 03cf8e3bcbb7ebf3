package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"github.com/atlixcomx/mascotas-sub001/internal/app/migrate"
	httpx "github.com/atlixcomx/mascotas-sub001/internal/http"
	"github.com/atlixcomx/mascotas-sub001/internal/mail"
	"github.com/atlixcomx/mascotas-sub001/internal/repository/postgres"
	"github.com/atlixcomx/mascotas-sub001/internal/service/activity"
	"github.com/atlixcomx/mascotas-sub001/internal/service/auth"
	metricsvc "github.com/atlixcomx/mascotas-sub001/internal/service/metrics"
	"github.com/atlixcomx/mascotas-sub001/internal/service/reminder"
	"github.com/atlixcomx/mascotas-sub001/internal/stream"
	"github.com/atlixcomx/mascotas-sub001/pkg/config"
	"github.com/atlixcomx/mascotas-sub001/pkg/logger"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	repo := postgres.New(pool)
	hub := stream.NewHub(log)

	authSvc := auth.New(repo, log, cfg)
	metricsSvc := metricsvc.New(repo, repo, log)
	activitySvc := activity.New(hub, log, cfg.ActivityBufferSize)
	engine := reminder.NewEngine(repo, nil, log)
	mailer := mail.NewSender(mail.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	dispatcher := reminder.NewDispatcher(hub, mailer, log, cfg.ReminderEmailTo, cfg.ReminderBatchThreshold)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, cfg, authSvc, hub, metricsSvc, activitySvc, engine, dispatcher, limiter, pool.Ping)
	defer router.Close()

	if spec := strings.TrimSpace(cfg.ReminderCronSpec); spec != "" {
		scheduler := cron.New()
		_, err := scheduler.AddFunc(spec, func() {
			runCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			items, err := engine.Scan(runCtx, time.Now().UTC())
			if err != nil {
				log.Error("scheduled reminder scan failed", "error", err)
				return
			}
			result := dispatcher.Dispatch(runCtx, items)
			log.Info("scheduled reminder run complete",
				"overdue", len(items), "broadcasts", result.Broadcasts, "email_sent", result.EmailSent)
		})
		if err != nil {
			log.Error("invalid reminder cron spec", "spec", spec, "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		defer scheduler.Stop()
		log.Info("reminder scheduler started", "spec", spec)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
