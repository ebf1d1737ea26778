package config

import (
	"fmt"
	"strings"
)

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.Transfer.ChunkSize <= 0 {
		return fmt.Errorf("transfer.chunk_size must be positive, got %d", c.Transfer.ChunkSize)
	}
	if c.Transfer.OperationTimeout < 0 {
		return fmt.Errorf("transfer.operation_timeout must not be negative")
	}
	switch c.Store.Driver {
	case DriverPostgres:
		if strings.TrimSpace(c.Database.Table) == "" {
			return fmt.Errorf("database.table is required")
		}
		if strings.TrimSpace(c.Database.URL) == "" && strings.TrimSpace(c.Database.Name) == "" {
			return fmt.Errorf("database.url or database.name is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported store.driver %q", c.Store.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes < 0 {
		return fmt.Errorf("server.max_upload_bytes must not be negative")
	}
	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "otlp", "zipkin", "jaeger":
		default:
			return fmt.Errorf("unsupported tracing.exporter %q", c.Tracing.Exporter)
		}
	}
	return nil
}
