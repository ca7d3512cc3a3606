package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"ettu-nearby/api"
	"ettu-nearby/config"
	"ettu-nearby/scraper/ettu"
	"ettu-nearby/services"
	"ettu-nearby/storage"
	"ettu-nearby/utils"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := utils.NewLogger()
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration: %v", err)
		return 1
	}
	logger.SetLevel(utils.ParseLevel(cfg.LogLevel))

	logger.Info("=== ettu nearby starting ===")
	logger.Info("Config: catalog %s | nearest: %d | concurrency: %d | timeout: %dms | mode: %s",
		cfg.CatalogPath, cfg.NearestCount, cfg.MaxConcurrency, cfg.FetchTimeoutMs, cfg.FetchMode)

	catalog, err := services.BuildCatalog(cfg.CatalogPath, logger)
	if err != nil {
		var die *services.DataIntegrityError
		if errors.As(err, &die) {
			logger.Error("Catalog file is corrupt: %v", die)
		} else {
			logger.Error("Failed to load catalog: %v", err)
		}
		return 1
	}

	summarySvc := services.NewSummaryService(logger)
	summarySvc.Print(summarySvc.Generate(catalog))

	persistCatalog(cfg, catalog, logger)

	fetcher, closeFetcher, err := newPageFetcher(cfg, logger)
	if err != nil {
		logger.Error("Failed to start page fetcher: %v", err)
		return 1
	}
	defer closeFetcher()

	client := ettu.New(fetcher, &utils.RetryConfig{
		MaxAttempts: cfg.FetchRetries,
		BaseDelay:   cfg.RetryBase(),
		Logger:      logger,
	}, logger)
	querySvc := services.NewQueryService(catalog.Stations, client, cfg.MaxConcurrency, cfg.FetchTimeout(), logger)

	if len(args) > 0 {
		return queryOnce(querySvc, args[0], cfg.NearestCount, logger)
	}
	return serve(cfg, querySvc, logger)
}

// persistCatalog exports the catalog to CSV and PostgreSQL when configured.
// Failures are logged and never stop the service.
func persistCatalog(cfg *config.Config, catalog *services.Catalog, logger *utils.Logger) {
	var writers []storage.StationWriter

	if cfg.CSVOutputPath != "" {
		w, err := storage.NewCSVWriter(cfg.CSVOutputPath)
		if err != nil {
			logger.Error("Failed to create CSV writer: %v", err)
		} else {
			writers = append(writers, w)
		}
	}
	if cfg.PostgresEnabled {
		w, err := storage.NewPostgresWriter(cfg.DSN())
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
		} else {
			writers = append(writers, w)
		}
	}

	for _, w := range writers {
		if err := w.Write(catalog.Stations); err != nil {
			logger.Error("Catalog export failed: %v", err)
		}
		if err := w.Close(); err != nil {
			logger.Warn("Closing catalog writer: %v", err)
		}
	}
	if len(writers) > 0 {
		logger.Info("Catalog exported to %d destination(s)", len(writers))
	}
}

func newPageFetcher(cfg *config.Config, logger *utils.Logger) (ettu.PageFetcher, func(), error) {
	if cfg.FetchMode == "browser" {
		b, err := ettu.NewBrowserFetcher(cfg.ChromeBin, cfg.UserAgent, logger)
		if err != nil {
			return nil, nil, err
		}
		return b, func() { _ = b.Close() }, nil
	}
	return ettu.NewHTTPFetcher(cfg.FetchTimeout(), cfg.UserAgent), func() {}, nil
}

func queryOnce(svc *services.QueryService, arg string, count int, logger *utils.Logger) int {
	lat, lon, err := parseLatLon(arg)
	if err != nil {
		logger.Error("Bad coordinates %q: %v", arg, err)
		return 2
	}
	reports := svc.QueryNearest(context.Background(), lat, lon, count)
	fmt.Println(services.FormatReports(reports))
	return 0
}

func parseLatLon(arg string) (float64, float64, error) {
	parts := strings.Split(arg, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want lat,lon")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("lat: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("lon: %w", err)
	}
	if err := api.ValidateCoordinatePair(lat, lon); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func serve(cfg *config.Config, svc *services.QueryService, logger *utils.Logger) int {
	app := api.NewApp(api.NewHandler(svc, cfg.NearestCount, logger))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping server...")
		if err := app.Shutdown(); err != nil {
			logger.Warn("Error stopping server: %v", err)
		}
	}()

	logger.Info("Listening on %s (GET /api/health, GET /api/stations/nearest)", cfg.ListenAddr)
	if err := app.Listen(cfg.ListenAddr); err != nil {
		logger.Error("Server failed: %v", err)
		return 1
	}
	logger.Info("Server stopped")
	return 0
}
