// Package config provides hierarchical configuration loading for promptbox.
// Precedence: defaults < YAML file < environment variables < CLI flags.
package config

import "time"

// Config holds all runtime configuration for the promptbox service.
type Config struct {
	Server      Server      `yaml:"server"`
	Logging     Logging     `yaml:"logging"`
	Catalog     Catalog     `yaml:"catalog"`
	Forks       Forks       `yaml:"forks"`
	Fanout      Fanout      `yaml:"fanout"`
	Breaker     Breaker     `yaml:"breaker"`
	Rate        Rate        `yaml:"rate"`
	Idempotency Idempotency `yaml:"idempotency"`
	NATS        NATS        `yaml:"nats"`
	OTel        OTel        `yaml:"otel"`
	MCP         MCP         `yaml:"mcp"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
	BodyLimit  int64  `yaml:"body_limit"` // Max request body in bytes
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Catalog holds agent catalog configuration.
type Catalog struct {
	Dir           string        `yaml:"dir"`            // Skill directory with SKILL.md, cookbook/ and prompts/
	Watch         bool          `yaml:"watch"`          // Reload on file changes
	WatchDebounce time.Duration `yaml:"watch_debounce"` // Quiet period before a watched change reloads
}

// Forks holds fork lifecycle configuration.
type Forks struct {
	WorkDir       string        `yaml:"work_dir"`       // Directory new terminals start in (default: process cwd)
	LaunchTimeout time.Duration `yaml:"launch_timeout"` // Bound on a single terminal spawn
	KillTimeout   time.Duration `yaml:"kill_timeout"`   // Bound on the kill command
	MaxRetained   int           `yaml:"max_retained"`   // Terminal forks kept before the oldest are evicted
	RetentionTTL  time.Duration `yaml:"retention_ttl"`  // Terminal forks older than this are swept
	SweepInterval time.Duration `yaml:"sweep_interval"`
	LinuxTerminal string        `yaml:"linux_terminal"` // Emulator tried first on Linux
}

// Fanout holds notification fan-out configuration.
type Fanout struct {
	QueueSize int `yaml:"queue_size"` // Per-subscriber event buffer
}

// Breaker holds the launcher circuit breaker configuration.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Rate holds rate limiter configuration.
type Rate struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	MaxIdleTime       time.Duration `yaml:"max_idle_time"`
}

// Idempotency holds Idempotency-Key replay configuration.
type Idempotency struct {
	Enabled      bool          `yaml:"enabled"`
	TTL          time.Duration `yaml:"ttl"`
	MaxCostBytes int64         `yaml:"max_cost_bytes"`
}

// NATS holds the optional event mirror configuration. Empty URL disables it.
type NATS struct {
	URL            string        `yaml:"url"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// OTel holds OpenTelemetry export configuration. Empty endpoint disables export.
type OTel struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// MCP holds Model Context Protocol server configuration.
type MCP struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
}

// Defaults returns a Config with sensible default values for local use.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8000",
			CORSOrigin: "http://localhost:5173",
			BodyLimit:  1 << 20,
		},
		Logging: Logging{
			Level:   "info",
			Service: "promptbox",
		},
		Catalog: Catalog{
			Dir:           ".claude/skills/fork-terminal",
			Watch:         true,
			WatchDebounce: 500 * time.Millisecond,
		},
		Forks: Forks{
			LaunchTimeout: 15 * time.Second,
			KillTimeout:   5 * time.Second,
			MaxRetained:   500,
			RetentionTTL:  24 * time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		Fanout: Fanout{
			QueueSize: 256,
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Rate: Rate{
			RequestsPerSecond: 10,
			Burst:             100,
			CleanupInterval:   5 * time.Minute,
			MaxIdleTime:       10 * time.Minute,
		},
		Idempotency: Idempotency{
			Enabled:      true,
			TTL:          10 * time.Minute,
			MaxCostBytes: 16 << 20,
		},
		NATS: NATS{
			ConnectTimeout: 10 * time.Second,
		},
		OTel: OTel{
			ServiceName: "promptbox",
			Insecure:    true,
		},
		MCP: MCP{
			Enabled: true,
		},
	}
}
