package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "BLOBVAULT"

// legacyEnv binds the bare DB_* connection variables so existing .env
// files keep working.
var legacyEnv = map[string]string{
	"database.user":     "DB_USER",
	"database.password": "DB_PASSWORD",
	"database.host":     "DB_HOST",
	"database.name":     "DB_NAME",
	"database.port":     "DB_PORT",
}

// Load reads configuration from the given file (or the default search path
// when empty), then environment variables, on top of Default().
func Load(path string) (Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load against a caller-provided viper instance, which lets the
// CLI bind flags before loading.
func LoadWith(v *viper.Viper, path string) (Config, error) {
	cfg, err := ReadWith(v, path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ReadWith decodes file, environment and defaults like LoadWith but skips
// Validate, for commands that only inspect the configuration.
func ReadWith(v *viper.Viper, path string) (Config, error) {
	setDefaults(v, Default())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("blobvault")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.blobvault")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.enable_cors", d.Server.EnableCORS)
	v.SetDefault("server.debug", d.Server.Debug)
	v.SetDefault("server.expose_internal_errors", d.Server.ExposeInternalErrors)
	v.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)

	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.table", d.Database.Table)
	v.SetDefault("database.max_conns", d.Database.MaxConns)
	v.SetDefault("database.connect_timeout", d.Database.ConnectTimeout)
	v.SetDefault("database.connect_retries", d.Database.ConnectRetries)
	v.SetDefault("database.auto_migrate", d.Database.AutoMigrate)

	v.SetDefault("store.driver", d.Store.Driver)

	v.SetDefault("transfer.chunk_size", d.Transfer.ChunkSize)
	v.SetDefault("transfer.operation_timeout", d.Transfer.OperationTimeout)

	v.SetDefault("log.dir", d.Log.Dir)
	v.SetDefault("log.level", d.Log.Level)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.zipkin_endpoint", d.Tracing.ZipkinEndpoint)
	v.SetDefault("tracing.jaeger_endpoint", d.Tracing.JaegerEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.service_version", d.Tracing.ServiceVersion)
}
