package config

import "time"

// Default returns the configuration used when no file or environment value
// overrides a key.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            DefaultPort,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			Table:          DefaultTable,
			MaxConns:       10,
			ConnectTimeout: 10 * time.Second,
			ConnectRetries: 5,
			AutoMigrate:    true,
		},
		Store: StoreConfig{Driver: DriverPostgres},
		Transfer: TransferConfig{
			ChunkSize: DefaultChunkSize,
		},
		Log: LogConfig{Level: "info"},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "blobvault",
		},
		Tracing: TracingConfig{
			Exporter:       "otlp",
			OTLPEndpoint:   "localhost:4318",
			SampleRate:     1.0,
			ServiceName:    "blobvault",
			ServiceVersion: "1.0.0",
		},
	}
}
