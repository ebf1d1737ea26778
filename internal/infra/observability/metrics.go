package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TransferObserver exports coordinator metrics to Prometheus.
type TransferObserver struct {
	duration        *prometheus.HistogramVec
	operationErrors *prometheus.CounterVec
	bytes           *prometheus.CounterVec
}

// NewTransferObserver registers ingest/retrieve/purge metrics.
func NewTransferObserver(namespace string, reg prometheus.Registerer) (*TransferObserver, error) {
	if namespace == "" {
		namespace = "blobvault"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	observer := &TransferObserver{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "operation_duration_seconds",
			Help:      "Latency for ingest, retrieve and purge operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		operationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "operation_errors_total",
			Help:      "Count of failed transfer operations by error kind.",
		}, []string{"operation", "kind"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "bytes_total",
			Help:      "Cumulative payload bytes moved through the large-object store.",
		}, []string{"direction"}),
	}

	var err error
	if observer.duration, err = register(reg, observer.duration); err != nil {
		return nil, err
	}
	if observer.operationErrors, err = register(reg, observer.operationErrors); err != nil {
		return nil, err
	}
	if observer.bytes, err = register(reg, observer.bytes); err != nil {
		return nil, err
	}
	return observer, nil
}

// register adds collector to reg, reusing an identical collector registered earlier.
func register[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, fmt.Errorf("register transfer metric: %w", err)
	}
	return collector, nil
}

// RecordIngest tracks ingest duration, written bytes and failures.
func (o *TransferObserver) RecordIngest(duration time.Duration, sizeBytes int64, kind string) {
	o.record("ingest", duration, kind)
	if o != nil && kind == "" {
		o.bytes.WithLabelValues("in").Add(float64(sizeBytes))
	}
}

// RecordRetrieve tracks retrieve duration, read bytes and failures.
func (o *TransferObserver) RecordRetrieve(duration time.Duration, sizeBytes int64, kind string) {
	o.record("retrieve", duration, kind)
	if o != nil && kind == "" {
		o.bytes.WithLabelValues("out").Add(float64(sizeBytes))
	}
}

// RecordPurge tracks purge duration and failures.
func (o *TransferObserver) RecordPurge(duration time.Duration, kind string) {
	o.record("purge", duration, kind)
}

func (o *TransferObserver) record(op string, duration time.Duration, kind string) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues(op).Observe(duration.Seconds())
	if kind != "" {
		o.operationErrors.WithLabelValues(op, kind).Inc()
	}
}
