package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eddiefleurent/options_calculator/internal/api"
	"github.com/eddiefleurent/options_calculator/internal/chain"
	"github.com/eddiefleurent/options_calculator/internal/config"
	"github.com/eddiefleurent/options_calculator/internal/rates"
	"github.com/eddiefleurent/options_calculator/internal/retry"
	"github.com/eddiefleurent/options_calculator/internal/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}

	logger, err := newLogger(cfg.Environment)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure logger")
	}

	history, err := storage.NewStorage(cfg.Storage.Path, cfg.Storage.MaxRecords)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open analysis history")
	}
	logger.WithFields(logrus.Fields{
		"path":    cfg.Storage.Path,
		"records": history.Count(),
	}).Info("Analysis history loaded")

	rateProvider := buildRateProvider(cfg, logger)
	server := api.NewServer(serverConfig(cfg), history, rateProvider, chain.NewStore(cfg.GetChainTTL()), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping server...")
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Fatal("Server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
	if err := history.Save(); err != nil {
		logger.WithError(err).Error("Failed to save analysis history")
	}

	logger.Info("Server stopped successfully")
}

func newLogger(env config.EnvironmentConfig) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(env.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	logger.SetLevel(level)

	switch env.LogFormat {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

func buildRateProvider(cfg *config.Config, logger *logrus.Logger) rates.Provider {
	if cfg.Rates.Provider != "fred" {
		logger.WithField("rate", cfg.Pricing.RiskFreeRate).Info("Using static risk-free rate")
		return rates.NewStaticProvider(cfg.Pricing.RiskFreeRate)
	}

	r := cfg.Rates
	client := rates.NewFREDClient(
		r.APIKey,
		r.Endpoint,
		r.SeriesID,
		&http.Client{Timeout: config.Duration(r.Timeout, 10*time.Second)},
		logger,
	)
	logger.WithField("series", client.SeriesID()).Info("Using FRED risk-free rate")

	return rates.NewCachedProvider(client, rates.CacheConfig{
		TTL:          cfg.GetRateCacheTTL(),
		FallbackRate: r.FallbackRate,
		CircuitBreaker: rates.CircuitBreakerSettings{
			MaxRequests:  r.CircuitBreaker.MaxRequests,
			Interval:     config.Duration(r.CircuitBreaker.Interval, time.Minute),
			Timeout:      config.Duration(r.CircuitBreaker.Timeout, 30*time.Second),
			MinRequests:  r.CircuitBreaker.MinRequests,
			FailureRatio: r.CircuitBreaker.FailureRatio,
		},
		Retry: retry.Config{
			MaxRetries:     r.Retry.MaxRetries,
			InitialBackoff: config.Duration(r.Retry.InitialBackoff, time.Second),
			MaxBackoff:     config.Duration(r.Retry.MaxBackoff, 30*time.Second),
			Timeout:        config.Duration(r.Timeout, 10*time.Second) * time.Duration(r.Retry.MaxRetries+1),
		},
	}, logger)
}

func serverConfig(cfg *config.Config) api.Config {
	return api.Config{
		Port:           cfg.Server.Port,
		AuthToken:      cfg.Server.AuthToken,
		RequestTimeout: cfg.GetRequestTimeout(),
		Defaults: api.Defaults{
			DividendYield:     cfg.Pricing.DividendYield,
			PointValue:        cfg.Pricing.PointValue,
			PriceRangePercent: cfg.Pricing.PriceRangePercent,
			NumPoints:         cfg.Pricing.NumPoints,
			MaxNumPoints:      cfg.Pricing.MaxNumPoints,
			CurveWorkers:      cfg.Pricing.CurveWorkers,
		},
	}
}
