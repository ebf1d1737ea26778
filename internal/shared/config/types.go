package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	DefaultPort      = 4000
	DefaultTable     = "blob_files"
	DefaultChunkSize = 16384
)

// Config is the full process configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Transfer TransferConfig `mapstructure:"transfer" yaml:"transfer"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	EnableCORS      bool          `mapstructure:"enable_cors" yaml:"enable_cors"`
	Debug           bool          `mapstructure:"debug" yaml:"debug"`
	// ExposeInternalErrors returns raw store/transfer error text to clients.
	ExposeInternalErrors bool `mapstructure:"expose_internal_errors" yaml:"expose_internal_errors"`
	// MaxUploadBytes caps one upload body; zero means unlimited.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig configures the Postgres connection and Metadata Index table.
type DatabaseConfig struct {
	URL            string        `mapstructure:"url" yaml:"url"`
	User           string        `mapstructure:"user" yaml:"user"`
	Password       string        `mapstructure:"password" yaml:"-"`
	Host           string        `mapstructure:"host" yaml:"host"`
	Port           int           `mapstructure:"port" yaml:"port"`
	Name           string        `mapstructure:"name" yaml:"name"`
	Table          string        `mapstructure:"table" yaml:"table"`
	MaxConns       int32         `mapstructure:"max_conns" yaml:"max_conns"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	ConnectRetries uint64        `mapstructure:"connect_retries" yaml:"connect_retries"`
	AutoMigrate    bool          `mapstructure:"auto_migrate" yaml:"auto_migrate"`
}

// DSN returns URL when set, otherwise a postgres:// URL assembled from the
// discrete connection fields.
func (c DatabaseConfig) DSN() string {
	if strings.TrimSpace(c.URL) != "" {
		return strings.TrimSpace(c.URL)
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   c.Host,
		Path:   "/" + c.Name,
	}
	if c.Port > 0 {
		u.Host = c.Host + ":" + strconv.Itoa(c.Port)
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	return u.String()
}

const redactedSecret = "xxxxx"

var keywordPassword = regexp.MustCompile(`(?i)(\bpassword\s*=\s*)('(?:[^'\\]|\\.)*'|\S+)`)

// RedactedURL returns URL with any password replaced, for both URL and
// keyword/value connection strings.
func (c DatabaseConfig) RedactedURL() string {
	raw := strings.TrimSpace(c.URL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		return keywordPassword.ReplaceAllString(raw, "${1}"+redactedSecret)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return redactedSecret
	}
	query := u.Query()
	if query.Has("password") {
		query.Set("password", redactedSecret)
		u.RawQuery = query.Encode()
	}
	return u.Redacted()
}

// Redacted returns a copy of c that is safe to print.
func (c Config) Redacted() Config {
	c.Database.URL = c.Database.RedactedURL()
	c.Database.Password = ""
	return c
}

// StoreConfig selects the store backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
}

// TransferConfig tunes the chunked transfer.
type TransferConfig struct {
	ChunkSize int `mapstructure:"chunk_size" yaml:"chunk_size"`
	// OperationTimeout bounds one Ingest/Retrieve/Purge; zero disables.
	OperationTimeout time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
}

// LogConfig configures the file logger.
type LogConfig struct {
	Dir   string `mapstructure:"dir" yaml:"dir"`
	Level string `mapstructure:"level" yaml:"level"` // debug, info, warn, error
}

// MetricsConfig configures Prometheus export.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// TracingConfig configures distributed tracing
type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
	Exporter       string  `mapstructure:"exporter" yaml:"exporter"` // otlp, zipkin, jaeger
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	ZipkinEndpoint string  `mapstructure:"zipkin_endpoint" yaml:"zipkin_endpoint"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint" yaml:"jaeger_endpoint"`
	SampleRate     float64 `mapstructure:"sample_rate" yaml:"sample_rate"` // 0.0 to 1.0
	ServiceName    string  `mapstructure:"service_name" yaml:"service_name"`
	ServiceVersion string  `mapstructure:"service_version" yaml:"service_version"`
}
