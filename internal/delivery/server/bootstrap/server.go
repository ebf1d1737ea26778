package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	serverHTTP "blobvault/internal/delivery/server/http"
	"blobvault/internal/shared/async"
	"blobvault/internal/shared/config"
	"blobvault/internal/shared/logging"
)

const defaultShutdownTimeout = 10 * time.Second

// RunServer builds the container, serves HTTP and blocks until SIGINT or
// SIGTERM, then drains in-flight requests.
func RunServer(ctx context.Context, cfg config.Config) error {
	logger := logging.NewComponentLogger("Main")
	logger.Info("Starting blobvault server...")

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	container, err := BuildContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("Cleanup: %v", err)
		}
	}()

	server := NewHTTPServer(container, cfg.Server)
	return serveUntilSignal(ctx, server, shutdownTimeout, logger)
}

// NewHTTPServer builds the http.Server for container.
func NewHTTPServer(container *Container, cfg config.ServerConfig) *http.Server {
	deps := serverHTTP.RouterDeps{
		Transfer: container.Coordinator,
		Tracer:   container.Tracing.Tracer(),
		Metrics:  container.Metrics,
		Logger:   logging.NewComponentLogger("Router"),
		Latency:  logging.NewLatencyLogger("HTTP"),
	}
	if container.HTTPMetrics != nil {
		deps.RequestMetrics = container.HTTPMetrics
	}
	router := serverHTTP.NewRouter(deps, serverHTTP.RouterConfig{
		EnableCORS:           cfg.EnableCORS,
		ExposeInternalErrors: cfg.ExposeInternalErrors,
		MaxUploadBytes:       cfg.MaxUploadBytes,
	})

	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
}

func serveUntilSignal(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, logger logging.Logger) error {
	logger = logging.OrNop(logger)
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	errCh := async.GoResult(logger, "server.listen", func() error {
		logger.Info("Server listening on %s", server.Addr)
		return server.ListenAndServe()
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	shutdownErr := server.Shutdown(shutdownCtx)

	serveErr := <-errCh
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}
	if shutdownErr != nil {
		return fmt.Errorf("shutdown: %w", shutdownErr)
	}
	if serveErr != nil {
		return fmt.Errorf("server error: %w", serveErr)
	}

	logger.Info("Server stopped")
	return nil
}
