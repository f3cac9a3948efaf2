// Command marketplace-demo serves a vehicle listing API backed by a simulated
// inventory, fronted by the query cache and an optimistic collection store.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	querycache "github.com/Borislavv/go-ash-query"
	"github.com/Borislavv/go-ash-query/config"
	"github.com/Borislavv/go-ash-query/internal/telemetry"
	"github.com/Borislavv/go-ash-query/model"
	"github.com/Borislavv/go-ash-query/store"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

const (
	defaultAddr      = ":8000"
	backendLatency   = 150 * time.Millisecond
	shutdownDeadline = 5 * time.Second
)

func main() {
	zl := zerolog.New(os.Stdout).With().Timestamp().Logger()
	logger := slog.New(telemetry.NewZerologHandler(zl))

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, falling back to system env")
	}

	cfg, err := loadConfig(os.Getenv("QUERYCACHE_CONFIG"))
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	addr := os.Getenv("QUERYCACHE_ADDR")
	if addr == "" {
		addr = defaultAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	qc, err := querycache.New[[]model.Record](ctx, cfg, logger, querycache.WithRegisterer(reg))
	if err != nil {
		logger.Error("init query cache", "err", err)
		os.Exit(1)
	}
	defer qc.Close()

	h := &vehicleHandler{
		cache:     qc,
		store:     store.New(store.WithLogger(logger), store.WithInvalidation(qc, vehicleSearchPrefix)),
		inventory: newInventory(backendLatency, seedVehicles()...),
		logger:    logger,
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(h, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("server running", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
	logger.Info("server stopped")
}

// loadConfig reads path when given, otherwise serves with defaults plus metrics.
func loadConfig(path string) (*config.Cache, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	cfg := &config.Cache{
		Metrics:   &config.MetricsCfg{Namespace: "marketplace", Subsystem: "query_cache"},
		Telemetry: &config.TelemetryCfg{Interval: 30 * time.Second},
	}
	cfg.AdjustConfig()
	return cfg, nil
}
