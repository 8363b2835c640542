package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/garnizeh/talentflow/api"
	dbfs "github.com/garnizeh/talentflow/db"
	"github.com/garnizeh/talentflow/internal/config"
	"github.com/garnizeh/talentflow/internal/db"
	"github.com/garnizeh/talentflow/internal/jobs"
	"github.com/garnizeh/talentflow/internal/logger"
	"github.com/garnizeh/talentflow/internal/repository/sqlite"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	api.SetLogger(log)

	log.Info("starting talentflow server", slog.String("version", version), slog.String("build_time", buildTime))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := db.New(ctx, cfg.DatabasePath, log)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Error("close db", slog.Any("error", err))
		}
	}()
	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	queue := jobs.NewRepository(d)
	pool := jobs.NewWorkerPool(queue, jobs.Handlers(sqlite.New(d, log)), log, cfg.Workers)

	metrics := api.NewMetrics()
	if err := metrics.Register(newQueueCollector(queue, log)); err != nil {
		return fmt.Errorf("register queue metrics: %w", err)
	}

	handler, err := api.SetupRoutes(ctx, cfg, version, buildTime, d, pool, metrics)
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout + cfg.Network.MaxLatency,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pool.Start(gctx)
		<-gctx.Done()
		pool.Stop()
		return nil
	})
	g.Go(func() error {
		log.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server exited")
	return nil
}

// queueCollector exports the background job counts per status.
type queueCollector struct {
	repo   *jobs.Repository
	logger *slog.Logger
	desc   *prometheus.Desc
}

func newQueueCollector(repo *jobs.Repository, logger *slog.Logger) *queueCollector {
	return &queueCollector{
		repo:   repo,
		logger: logger,
		desc: prometheus.NewDesc("talentflow_background_jobs",
			"Background jobs by status.", []string{"status"}, nil),
	}
}

func (c *queueCollector) Describe(ch chan<- *prometheus.Desc) { ch <- c.desc }

func (c *queueCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	counts, err := c.repo.CountByStatus(ctx)
	if err != nil {
		c.logger.Warn("count background jobs", slog.Any("error", err))
		return
	}
	for status, n := range counts {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(n), status)
	}
}
