package observability

import (
	"context"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// HTTPMetrics records per-request server metrics through an OpenTelemetry
// meter whose readings are exported into a Prometheus registry.
type HTTPMetrics struct {
	provider         *sdkmetric.MeterProvider
	httpRequests     metric.Int64Counter
	httpLatency      metric.Float64Histogram
	httpResponseSize metric.Int64Histogram
}

// NewHTTPMetrics registers the HTTP instruments with reg under namespace.
func NewHTTPMetrics(namespace string, reg promclient.Registerer) (*HTTPMetrics, error) {
	if namespace == "" {
		namespace = "blobvault"
	}
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("blobvault/http")

	httpRequests, err := meter.Int64Counter(
		namespace+".http.requests",
		metric.WithDescription("Total HTTP requests handled by the server"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests counter: %w", err)
	}

	httpLatency, err := meter.Float64Histogram(
		namespace+".http.latency",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_latency histogram: %w", err)
	}

	httpResponseSize, err := meter.Int64Histogram(
		namespace+".http.response.size",
		metric.WithDescription("HTTP response body size"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_response_size histogram: %w", err)
	}

	return &HTTPMetrics{
		provider:         provider,
		httpRequests:     httpRequests,
		httpLatency:      httpLatency,
		httpResponseSize: httpResponseSize,
	}, nil
}

// RecordHTTPServerRequest records one finished request.
func (m *HTTPMetrics) RecordHTTPServerRequest(ctx context.Context, method, route string, status int, duration time.Duration, responseBytes int64) {
	if m == nil {
		return
	}
	routeAttrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
	)
	m.httpRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	))
	m.httpLatency.Record(ctx, duration.Seconds(), routeAttrs)
	if responseBytes >= 0 {
		m.httpResponseSize.Record(ctx, responseBytes, routeAttrs)
	}
}

// Shutdown stops the meter provider.
func (m *HTTPMetrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
