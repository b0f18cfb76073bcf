package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sdko-org/sim-fleet/internal/carrier"
	"github.com/sdko-org/sim-fleet/internal/config"
	"github.com/sdko-org/sim-fleet/internal/database"
	"github.com/sdko-org/sim-fleet/internal/handlers"
	"github.com/sdko-org/sim-fleet/internal/scheduler"
	"github.com/sdko-org/sim-fleet/internal/service"
	"github.com/sdko-org/sim-fleet/internal/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	db, err := database.NewPostgresDB(logger, database.PostgresConfig{
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		DBName:   cfg.PostgresDatabase,
		SSLMode:  cfg.PostgresSSLMode,
	})
	if err != nil {
		logger.WithError(err).Fatal("Database initialization failed")
	}

	carrierClient := carrier.NewClient(logger, cfg)
	simService := service.NewSIMService(logger, db, carrierClient)

	var archiver storage.Archiver
	if cfg.ArchiveEnabled {
		archiver = storage.NewS3Archiver(logger, cfg)
	}

	var sched *scheduler.Scheduler
	if cfg.EnableScheduler {
		sched = scheduler.New(logger, cfg.MisfireGrace)
		jobs := scheduler.NewJobs(logger, simService, db, archiver, cfg)
		if err := jobs.RegisterAll(sched); err != nil {
			logger.WithError(err).Fatal("Job registration failed")
		}
		sched.Start(context.Background())
	} else {
		logger.Info("Scheduler disabled by configuration")
	}

	handler := handlers.NewAPIHandler(logger, cfg, simService, sched, db)

	r := mux.NewRouter()
	r.Use(handlers.LoggingMiddleware(logger, db))
	r.Use(handlers.RateLimitMiddleware(cfg))
	handlers.RegisterRoutes(r, handler)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint

		if sched != nil {
			sched.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("Server shutdown error")
		}
	}()

	logger.WithField("addr", server.Addr).Info("Starting server")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Fatal("Server failed")
	}
}
