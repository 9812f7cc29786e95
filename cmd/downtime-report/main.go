package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streamfleet/downtime-report/internal/api"
	"github.com/streamfleet/downtime-report/internal/cache"
	"github.com/streamfleet/downtime-report/internal/config"
	"github.com/streamfleet/downtime-report/internal/engine"
	"github.com/streamfleet/downtime-report/internal/ingest"
	"github.com/streamfleet/downtime-report/internal/metrics"
	"github.com/streamfleet/downtime-report/internal/models"
	"github.com/streamfleet/downtime-report/internal/services"
	"github.com/streamfleet/downtime-report/internal/utils"
)

func main() {
	var (
		configPath string
		serve      bool
		inputPath  string
		startDate  string
		endDate    string
		devices    string
		outDir     string
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&serve, "serve", false, "Run the HTTP report API instead of a one-shot report")
	flag.StringVar(&inputPath, "input", "", "CSV event log for one-shot mode")
	flag.StringVar(&startDate, "start", "", "Start date filter (YYYY-MM-DD)")
	flag.StringVar(&endDate, "end", "", "End date filter (YYYY-MM-DD, inclusive)")
	flag.StringVar(&devices, "devices", "", "Comma-separated device allow-list (empty = all)")
	flag.StringVar(&outDir, "out", ".", "Directory for one-shot CSV output")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("failed to resolve report timezone", slog.Any("error", err))
		os.Exit(1)
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	service := services.NewReportService(
		logger,
		engine.New(logger),
		ingest.NewNormalizer(loc),
		newCacheProvider(cfg, serve, logger),
		cfg.Cache.EventsTTL,
		loc,
	)

	if !serve {
		runOnce(logger, service, loc, inputPath, startDate, endDate, devices, outDir)
		return
	}

	handler := api.NewHandler(logger, service, loc, cfg.Server.MaxUploadBytes)
	server, err := api.NewServer(cfg.Server, handler)
	if err != nil {
		logger.Error("failed to create HTTP server", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("starting downtime-report", slog.String("address", server.Address()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("HTTP server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("downtime-report stopped")
}

// newCacheProvider picks the events cache: Valkey when configured, an
// in-process cache for the long-running server, nothing for one-shot runs.
func newCacheProvider(cfg *config.Config, serve bool, logger *slog.Logger) cache.Provider {
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable", slog.Any("error", err))
		} else {
			return provider
		}
	}
	if serve {
		return cache.NewMemoryProvider()
	}
	return cache.NoopProvider{}
}

// runOnce generates a single report from a local CSV and writes both tables
// next to each other in outDir.
func runOnce(logger *slog.Logger, service *services.ReportService, loc *time.Location, inputPath, startDate, endDate, devices, outDir string) {
	if inputPath == "" {
		logger.Error("one-shot mode requires -input (or pass -serve)")
		os.Exit(2)
	}

	opts := services.ReportOptions{}
	var err error
	if startDate != "" {
		if opts.Start, err = utils.ParseReportDate(startDate, loc); err != nil {
			logger.Error("invalid -start", slog.Any("error", err))
			os.Exit(2)
		}
	}
	if endDate != "" {
		if opts.End, err = utils.ParseReportDate(endDate, loc); err != nil {
			logger.Error("invalid -end", slog.Any("error", err))
			os.Exit(2)
		}
	}
	for _, device := range strings.Split(devices, ",") {
		if device = strings.TrimSpace(device); device != "" {
			opts.Devices = append(opts.Devices, device)
		}
	}

	input, err := os.Open(inputPath)
	if err != nil {
		logger.Error("failed to open input", slog.Any("error", err))
		os.Exit(1)
	}
	defer input.Close()

	report, err := service.GenerateFromCSV(context.Background(), input, opts)
	if err != nil {
		logger.Error("report generation failed", slog.Any("error", err))
		os.Exit(1)
	}

	for _, diag := range report.Diagnostics {
		logger.Warn("report diagnostic", slog.String("kind", string(diag.Kind)), slog.Int("line", diag.Line), slog.String("message", diag.Message))
	}

	summaryPath := filepath.Join(outDir, "summary.csv")
	downtimePath := filepath.Join(outDir, "downtime.csv")
	if err := writeCSVFile(summaryPath, report, api.WriteSummaryCSV); err != nil {
		logger.Error("failed to write summary table", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writeCSVFile(downtimePath, report, api.WriteDowntimeCSV); err != nil {
		logger.Error("failed to write downtime table", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("report written",
		slog.String("summary", summaryPath),
		slog.String("downtime", downtimePath),
		slog.Int("devices", report.DeviceCount),
		slog.Int("online", report.OnlineCount),
		slog.Int("offline", report.OfflineCount),
		slog.Time("as_of", report.ReferenceTime))
}

func writeCSVFile(path string, report models.Report, write func(io.Writer, models.Report) error) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(out, report); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
