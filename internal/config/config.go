// Package config provides hierarchical configuration loading for the NetBox assistant.
// Precedence: defaults < YAML file < .env file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the assistant service.
type Config struct {
	Server       Server       `yaml:"server"`
	Assistant    Assistant    `yaml:"assistant"`
	NetBox       NetBox       `yaml:"netbox"`
	Orchestrator Orchestrator `yaml:"orchestrator"`
	Logging      Logging      `yaml:"logging"`
	Breaker      Breaker      `yaml:"breaker"`
	Cache        Cache        `yaml:"cache"`
	NATS         NATS         `yaml:"nats"`
	Postgres     Postgres     `yaml:"postgres"`
	OTEL         OTEL         `yaml:"otel"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Assistant holds the hosted assistant (OpenAI / Azure OpenAI Assistants API) settings.
type Assistant struct {
	Endpoint    string `yaml:"endpoint"`
	APIKey      string `yaml:"api_key"`
	APIVersion  string `yaml:"api_version"`
	AssistantID string `yaml:"assistant_id"`
	Model       string `yaml:"model"`
	Azure       bool   `yaml:"azure"` // Azure deployment URL scheme + api-key header
}

// NetBox holds the inventory GraphQL endpoint settings.
type NetBox struct {
	URL        string        `yaml:"url"`
	Token      string        `yaml:"token"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries uint          `yaml:"max_retries"`
}

// GraphQLURL returns the GraphQL endpoint below the NetBox base URL.
func (n NetBox) GraphQLURL() string {
	u := n.URL
	for len(u) > 0 && u[len(u)-1] == '/' {
		u = u[:len(u)-1]
	}
	return u + "/graphql/"
}

// Orchestrator holds run orchestration timing and limits.
type Orchestrator struct {
	PollInterval time.Duration `yaml:"poll_interval"` // Delay between status polls (default: 1s)
	PollTimeout  time.Duration `yaml:"poll_timeout"`  // Deadline per polling phase (default: 300s)
	TurnTimeout  time.Duration `yaml:"turn_timeout"`  // Deadline for a whole turn (default: 15m)
	ToolTimeout  time.Duration `yaml:"tool_timeout"`  // Deadline per tool invocation (default: 60s)
	MaxRounds    int           `yaml:"max_rounds"`    // Max requires_action rounds per turn (default: 16)
	MaxParallel  int           `yaml:"max_parallel"`  // Concurrent tool calls per round; 0 = unbounded
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Cache holds the NetBox query result cache configuration.
// L2 is only used when NATS is configured.
type Cache struct {
	Enabled     bool          `yaml:"enabled"`
	L1MaxSizeMB int64         `yaml:"l1_max_size_mb"`
	TTL         time.Duration `yaml:"ttl"`
	L2Bucket    string        `yaml:"l2_bucket"`
}

// NATS holds NATS JetStream configuration. An empty URL disables run events and L2 caching.
type NATS struct {
	URL string `yaml:"url"`
}

// Postgres holds PostgreSQL connection configuration. An empty DSN disables the audit log.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// OTEL holds OpenTelemetry exporter configuration. An empty endpoint keeps the no-op providers.
type OTEL struct {
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	Insecure    bool    `yaml:"insecure"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		Assistant: Assistant{
			APIVersion: "2024-05-01-preview",
			Model:      "gpt-4o-mini",
			Azure:      true,
		},
		NetBox: NetBox{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Orchestrator: Orchestrator{
			PollInterval: time.Second,
			PollTimeout:  300 * time.Second,
			TurnTimeout:  15 * time.Minute,
			ToolTimeout:  60 * time.Second,
			MaxRounds:    16,
			MaxParallel:  0,
		},
		Logging: Logging{
			Level:   "info",
			Service: "netbox-assistant",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Cache: Cache{
			Enabled:     true,
			L1MaxSizeMB: 32,
			TTL:         time.Minute,
			L2Bucket:    "NBASSIST_QUERY_CACHE",
		},
		Postgres: Postgres{
			MaxConns:        5,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		OTEL: OTEL{
			ServiceName: "netbox-assistant",
			Insecure:    true,
			SampleRate:  1.0,
		},
	}
}
