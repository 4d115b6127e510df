package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pentest-portal/internal/config"
	"github.com/pentest-portal/internal/database"
	"github.com/pentest-portal/internal/metrics"
	"github.com/pentest-portal/internal/scheduler"
	"github.com/pentest-portal/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logrus.Errorf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	// Set log level
	level, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		logrus.Errorf("Invalid log level: %v", err)
		os.Exit(1)
	}
	logrus.SetLevel(level)
	if cfg.App.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	// Connect to database and apply the schema
	db, err := database.Connect(cfg)
	if err != nil {
		logrus.Errorf("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.Migrate(ctx, db); err != nil {
		logrus.Errorf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	store := database.NewSQLStore(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	srv, err := server.New(server.Options{
		Store:          store,
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminAPIToken:  cfg.Server.AdminAPIToken,
		UploadDir:      cfg.Server.UploadDir,
		Environment:    cfg.App.Environment,
	})
	if err != nil {
		logrus.Errorf("Failed to initialize server: %v", err)
		os.Exit(1)
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(store, m, cfg.Scheduler.Timezone)
		if err != nil {
			logrus.Errorf("Failed to initialize scheduler: %v", err)
			os.Exit(1)
		}
		if err := sched.Start(ctx); err != nil {
			logrus.Errorf("Failed to start scheduler: %v", err)
			os.Exit(1)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(cfg.Server.ListenAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logrus.Infof("Received signal %v, shutting down", sig)
	case err := <-errCh:
		logrus.Errorf("Server stopped: %v", err)
	}

	if sched != nil {
		sched.Stop()
	}
}
