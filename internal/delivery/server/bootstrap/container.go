package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"blobvault/internal/app/transfer"
	"blobvault/internal/domain/blob"
	"blobvault/internal/infra/observability"
	"blobvault/internal/shared/config"
	"blobvault/internal/shared/logging"
)

// Container holds the long-lived components built from one Config.
type Container struct {
	Config      config.Config
	Store       blob.Store
	Coordinator *transfer.Coordinator
	Tracing     *observability.TracerProvider
	// Metrics and HTTPMetrics are nil when metrics are disabled.
	Metrics     http.Handler
	HTTPMetrics *observability.HTTPMetrics
}

// BuildContainer wires config into store, observer, tracer and coordinator.
// The caller owns Close.
func BuildContainer(ctx context.Context, cfg config.Config, logger logging.Logger) (*Container, error) {
	logger = logging.OrNop(logger)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tracing, err := observability.NewTracerProvider(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	opts := []transfer.Option{
		transfer.WithChunkSize(cfg.Transfer.ChunkSize),
		transfer.WithOperationTimeout(cfg.Transfer.OperationTimeout),
		transfer.WithTracer(tracing.Tracer()),
	}

	var metricsHandler http.Handler
	var httpMetrics *observability.HTTPMetrics
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		observer, err := observability.NewTransferObserver(cfg.Metrics.Namespace, registry)
		if err != nil {
			_ = tracing.Shutdown(ctx)
			return nil, fmt.Errorf("metrics: %w", err)
		}
		opts = append(opts, transfer.WithObserver(observer))
		httpMetrics, err = observability.NewHTTPMetrics(cfg.Metrics.Namespace, registry)
		if err != nil {
			_ = tracing.Shutdown(ctx)
			return nil, fmt.Errorf("metrics: %w", err)
		}
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	}

	store, err := BuildStore(ctx, cfg, logger)
	if err != nil {
		_ = httpMetrics.Shutdown(ctx)
		_ = tracing.Shutdown(ctx)
		return nil, err
	}

	coordinator, err := transfer.New(store, opts...)
	if err != nil {
		store.Close()
		_ = httpMetrics.Shutdown(ctx)
		_ = tracing.Shutdown(ctx)
		return nil, err
	}

	return &Container{
		Config:      cfg,
		Store:       store,
		Coordinator: coordinator,
		Tracing:     tracing,
		Metrics:     metricsHandler,
		HTTPMetrics: httpMetrics,
	}, nil
}

// Close releases the store, stops the meter and flushes pending spans.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Store != nil {
		c.Store.Close()
	}
	if err := c.HTTPMetrics.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown metrics: %w", err))
	}
	if c.Tracing != nil {
		if err := c.Tracing.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	return errors.Join(errs...)
}
