package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"linkkeeper/internal/bot"
	"linkkeeper/internal/config"
	"linkkeeper/internal/links"
	"linkkeeper/internal/observability"
	"linkkeeper/internal/scraper"
	"linkkeeper/internal/storage"
)

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(cfg.Level())

	log.WithFields(logrus.Fields{
		"badgerdb_path": cfg.BadgerDBPath,
		"fetch_mode":    cfg.FetchMode,
		"fetch_timeout": cfg.FetchTimeout.String(),
	}).Info("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Initialize Components ---
	metrics := observability.NewMetrics(nil)
	metricsSrv := startMetricsServer(cfg.MetricsAddr, log)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	repo, err := storage.NewBadgerRepository(cfg.BadgerDBPath, log)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.WithError(err).Error("Error closing database")
		}
	}()
	go repo.RunGC(ctx, cfg.GCInterval)

	var pages scraper.PageFetcher = scraper.NewHTTPFetcher(cfg.FetchTimeout, cfg.PageMaxBytes)
	if cfg.FetchMode == config.FetchModeBrowser {
		pages = scraper.NewBrowserFetcher(cfg.FetchTimeout, cfg.PageMaxBytes, log)
	}
	images := scraper.NewHTTPFetcher(cfg.ImageTimeout, cfg.ImageMaxBytes)
	pipeline := scraper.NewPipeline(pages, images, log, metrics)

	service := links.NewService(repo, pipeline, log, metrics)

	botHandler, err := bot.NewHandler(cfg.TelegramBotToken, service, log)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram bot handler: %v", err)
	}

	// --- Application Startup ---
	log.Info("Starting linkkeeper...")
	go botHandler.Start(ctx)

	<-ctx.Done()
	log.Info("Shutting down linkkeeper...")
}

func startMetricsServer(addr string, log logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics server error")
		}
	}()

	return srv
}
