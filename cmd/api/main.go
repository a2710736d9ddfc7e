package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/chinmaya-sahoo/Farr/internal/api"
	"github.com/chinmaya-sahoo/Farr/internal/auth"
	"github.com/chinmaya-sahoo/Farr/internal/config"
	"github.com/chinmaya-sahoo/Farr/internal/domain"
	"github.com/chinmaya-sahoo/Farr/internal/jobs"
	"github.com/chinmaya-sahoo/Farr/internal/outbox"
	persistence "github.com/chinmaya-sahoo/Farr/internal/persistence/postgres"
	httptransport "github.com/chinmaya-sahoo/Farr/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.JSONFormatter{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN())
	if err != nil {
		log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)
	producer := outbox.NewProducer(cfg.KafkaBrokers())
	defer producer.Close()

	dispatcher := outbox.NewDispatcher(pool, producer, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	go dispatcher.Start(ctx)

	scheduler := jobs.NewScheduler(repo, cfg.ConsistencyCronSpec, cfg.ConsistencyCoins)
	if err := scheduler.Start(ctx); err != nil {
		log.WithError(err).Fatal("failed to start scheduler")
	}

	service := domain.NewService(repo, repo, repo)
	handler := api.NewHandler(service)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	handler.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(
		auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
		func(r *http.Request) bool {
			return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
		},
	)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, authMiddleware.Wrap(router))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithField("address", cfg.HTTPAddress).Info("farr api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}

	scheduler.Stop()
	dispatcher.Wait()
}
