package http

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"blobvault/internal/shared/logging"
	id "blobvault/internal/shared/utils/id"
)

const logIDHeader = "X-Log-Id"

func resolveLogID(c *gin.Context) string {
	for _, header := range []string{logIDHeader, "X-Request-Id", "X-Correlation-Id"} {
		if value := strings.TrimSpace(c.GetHeader(header)); value != "" {
			return value
		}
	}
	return ""
}

// LogIDMiddleware tags every request context with a log id, reusing the
// caller's X-Log-Id when present, and logs the request line.
func LogIDMiddleware(logger logging.Logger) gin.HandlerFunc {
	logger = logging.OrNop(logger)
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if incoming := resolveLogID(c); incoming != "" {
			ctx = id.WithLogID(ctx, incoming)
		}
		ctx, logID := id.EnsureLogID(ctx, id.NewLogID)
		c.Header(logIDHeader, logID)
		c.Request = c.Request.WithContext(ctx)

		logging.WithLogID(logger, logID).Info("%s %s from %s", c.Request.Method, c.Request.URL.Path, c.ClientIP())
		c.Next()
	}
}

// RequestMetrics records finished HTTP requests.
type RequestMetrics interface {
	RecordHTTPServerRequest(ctx context.Context, method, route string, status int, duration time.Duration, responseBytes int64)
}

// ObservabilityMiddleware wraps each request in a server span, records request
// metrics when metrics is non-nil and writes a latency line once the handler
// returns.
func ObservabilityMiddleware(tracer trace.Tracer, metrics RequestMetrics, latency logging.Logger) gin.HandlerFunc {
	if tracer == nil {
		tracer = otel.Tracer("blobvault/http")
	}
	latency = logging.OrNop(latency)
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		start := time.Now()
		ctx, span := tracer.Start(c.Request.Context(), "HTTP "+c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start)
		if metrics != nil {
			metrics.RecordHTTPServerRequest(ctx, c.Request.Method, route, status, elapsed, int64(c.Writer.Size()))
		}
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, strings.TrimSpace(c.Errors.String()))
		}
		logging.FromContext(ctx, latency).Info("route=%s method=%s status=%d bytes=%d latency_ms=%.2f",
			route, c.Request.Method, status, c.Writer.Size(), float64(elapsed.Microseconds())/1000)
	}
}
