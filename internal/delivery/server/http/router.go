package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"blobvault/internal/shared/logging"
)

// RouterConfig holds the delivery switches taken from server config.
type RouterConfig struct {
	EnableCORS           bool
	ExposeInternalErrors bool
	// MaxUploadBytes caps the request body of an upload; zero disables the cap.
	MaxUploadBytes int64
}

// RouterDeps are the collaborators the router needs.
type RouterDeps struct {
	Transfer TransferService
	Tracer   trace.Tracer
	// Metrics is mounted at GET /metrics when non-nil.
	Metrics http.Handler
	// RequestMetrics records per-request metrics when non-nil.
	RequestMetrics RequestMetrics
	Logger         logging.Logger
	Latency        logging.Logger
}

// NewRouter creates the gin engine with every endpoint registered.
func NewRouter(deps RouterDeps, cfg RouterConfig) *gin.Engine {
	logger := logging.OrNop(deps.Logger)

	engine := gin.New()
	engine.Use(gin.Recovery())
	if cfg.EnableCORS {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", logIDHeader}
		corsConfig.ExposeHeaders = []string{"Content-Disposition", logIDHeader}
		engine.Use(cors.New(corsConfig))
	}
	engine.Use(LogIDMiddleware(logger))
	engine.Use(ObservabilityMiddleware(deps.Tracer, deps.RequestMetrics, deps.Latency))

	handler := NewStreamHandler(deps.Transfer, logger, cfg.ExposeInternalErrors, cfg.MaxUploadBytes)

	stream := engine.Group("/stream")
	{
		stream.POST("", handler.HandleUpload)
		stream.GET("", handler.HandleDownload)
		stream.DELETE("", handler.HandleDelete)
		stream.GET("/meta", handler.HandleDescribe)
	}

	engine.GET("/healthz", handler.HandleHealth)
	if deps.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	return engine
}
