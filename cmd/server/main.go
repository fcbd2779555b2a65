package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"economat/internal/config"
	"economat/internal/infra"
	"economat/internal/middleware"
	"economat/internal/repository"
	"economat/internal/router"
	"economat/internal/service"
	"economat/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger — dev: pretty, prod: JSON
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("database close")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis backs the product cache and the alert queue. Without it the
	// service still runs; alerts are persisted and wait in the table.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
	}

	images, err := infra.NewImageStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open voucher image store")
	}

	var queue service.AlertQueue
	var pool *worker.Pool
	if rdb != nil {
		queue = worker.NewDispatcher(rdb)

		// Worker handlers are wired here (composition root) so that the pool
		// has full access to all infrastructure dependencies.
		mailerCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
		alertWorker := worker.NewAlertWorker(
			repository.NewStockAlertRepository(db.DB),
			infra.NewMailer(cfg),
			mailerCB,
			worker.NewDeadLetters(rdb),
		)
		pool = worker.NewPool(rdb)
		pool.Handle(worker.JobStockAlert, alertWorker)
		pool.Start(ctx, cfg.WorkerPoolSize)
	}

	svcs := router.NewServices(cfg, db.DB, rdb, images, queue)

	if _, err := worker.StartScheduler(ctx, svcs.Alerts, worker.SchedulerConfig{
		RetrySchedule:  cfg.AlertRetrySchedule,
		ExpirySchedule: cfg.ExpirySweepSchedule,
	}); err != nil {
		log.Fatal().Err(err).Msg("invalid scheduler configuration")
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, time.Minute)
	limiter.StartPurge(ctx)

	r := router.New(cfg, db.DB, rdb, svcs, limiter)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("economat backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	if pool != nil {
		pool.Wait()
	}
	log.Info().Msg("server exited")
}
