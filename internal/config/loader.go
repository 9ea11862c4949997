package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "promptbox.yaml"

// CLIFlags carries command-line overrides. Nil fields were not set.
type CLIFlags struct {
	ConfigPath *string
	Port       *string
	LogLevel   *string
	CatalogDir *string
	WorkDir    *string
	NatsURL    *string
}

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg, err := load(yamlPath, CLIFlags{})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithCLI applies the full hierarchy including CLI flags and returns the
// config together with the YAML path that was consulted.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	path := os.Getenv("PROMPTBOX_CONFIG")
	if path == "" {
		path = DefaultConfigFile
	}
	if flags.ConfigPath != nil && *flags.ConfigPath != "" {
		path = *flags.ConfigPath
	}

	cfg, err := load(path, flags)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func load(yamlPath string, flags CLIFlags) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)
	applyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is operator-supplied
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PROMPTBOX_PORT")
	setString(&cfg.Server.CORSOrigin, "PROMPTBOX_CORS_ORIGIN")
	setInt64(&cfg.Server.BodyLimit, "PROMPTBOX_BODY_LIMIT")

	setString(&cfg.Logging.Level, "PROMPTBOX_LOG_LEVEL")
	setString(&cfg.Logging.Service, "PROMPTBOX_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "PROMPTBOX_LOG_ASYNC")

	// Catalog
	setString(&cfg.Catalog.Dir, "PROMPTBOX_CATALOG_DIR")
	setBool(&cfg.Catalog.Watch, "PROMPTBOX_CATALOG_WATCH")
	setDuration(&cfg.Catalog.WatchDebounce, "PROMPTBOX_CATALOG_WATCH_DEBOUNCE")

	// Forks
	setString(&cfg.Forks.WorkDir, "PROMPTBOX_WORK_DIR")
	setDuration(&cfg.Forks.LaunchTimeout, "PROMPTBOX_LAUNCH_TIMEOUT")
	setDuration(&cfg.Forks.KillTimeout, "PROMPTBOX_KILL_TIMEOUT")
	setInt(&cfg.Forks.MaxRetained, "PROMPTBOX_MAX_RETAINED")
	setDuration(&cfg.Forks.RetentionTTL, "PROMPTBOX_RETENTION_TTL")
	setDuration(&cfg.Forks.SweepInterval, "PROMPTBOX_SWEEP_INTERVAL")
	setString(&cfg.Forks.LinuxTerminal, "PROMPTBOX_LINUX_TERMINAL")

	setInt(&cfg.Fanout.QueueSize, "PROMPTBOX_FANOUT_QUEUE_SIZE")

	setInt(&cfg.Breaker.MaxFailures, "PROMPTBOX_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "PROMPTBOX_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "PROMPTBOX_RATE_RPS")
	setInt(&cfg.Rate.Burst, "PROMPTBOX_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "PROMPTBOX_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "PROMPTBOX_RATE_MAX_IDLE_TIME")

	// Idempotency
	setBool(&cfg.Idempotency.Enabled, "PROMPTBOX_IDEMPOTENCY_ENABLED")
	setDuration(&cfg.Idempotency.TTL, "PROMPTBOX_IDEMPOTENCY_TTL")
	setInt64(&cfg.Idempotency.MaxCostBytes, "PROMPTBOX_IDEMPOTENCY_MAX_BYTES")

	setString(&cfg.NATS.URL, "NATS_URL")
	setDuration(&cfg.NATS.ConnectTimeout, "PROMPTBOX_NATS_CONNECT_TIMEOUT")

	setString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.OTel.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.OTel.Insecure, "PROMPTBOX_OTEL_INSECURE")

	setBool(&cfg.MCP.Enabled, "PROMPTBOX_MCP_ENABLED")
	setString(&cfg.MCP.APIKey, "PROMPTBOX_MCP_API_KEY")
}

// applyCLI overlays explicitly set command-line flags onto cfg.
func applyCLI(cfg *Config, flags CLIFlags) {
	if flags.Port != nil {
		cfg.Server.Port = *flags.Port
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
	if flags.CatalogDir != nil {
		cfg.Catalog.Dir = *flags.CatalogDir
	}
	if flags.WorkDir != nil {
		cfg.Forks.WorkDir = *flags.WorkDir
	}
	if flags.NatsURL != nil {
		cfg.NATS.URL = *flags.NatsURL
	}
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Server.BodyLimit < 1 {
		return errors.New("server.body_limit must be >= 1")
	}
	if cfg.Catalog.Dir == "" {
		return errors.New("catalog.dir is required")
	}
	if cfg.Forks.LaunchTimeout <= 0 {
		return errors.New("forks.launch_timeout must be > 0")
	}
	if cfg.Forks.MaxRetained < 1 {
		return errors.New("forks.max_retained must be >= 1")
	}
	if cfg.Fanout.QueueSize < 1 {
		return errors.New("fanout.queue_size must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.RequestsPerSecond <= 0 {
		return errors.New("rate.requests_per_second must be > 0")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Idempotency.Enabled && cfg.Idempotency.MaxCostBytes < 1 {
		return errors.New("idempotency.max_cost_bytes must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
