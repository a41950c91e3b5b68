package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "nbassist.yaml"

// DefaultEnvFile is the dotenv file loaded into the process environment.
const DefaultEnvFile = ".env"

// Load returns a Config using the hierarchy: defaults < YAML < .env < ENV.
// Both files are optional; missing files are not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile, DefaultEnvFile)
}

// LoadFrom returns a Config loaded from the given YAML and dotenv paths.
// Variables already present in the environment win over the dotenv file.
func LoadFrom(yamlPath, envPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	if err := loadDotenv(envPath); err != nil {
		return nil, fmt.Errorf("config dotenv: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied path
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

// loadDotenv merges a dotenv file into the process environment without
// overriding variables that are already set.
func loadDotenv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "NBASSIST_PORT")
	setString(&cfg.Server.CORSOrigin, "NBASSIST_CORS_ORIGIN")

	// Assistant (names shared with the Azure OpenAI tooling)
	setString(&cfg.Assistant.Endpoint, "AZURE_OPENAI_ENDPOINT")
	setString(&cfg.Assistant.APIKey, "AZURE_OPENAI_API_KEY")
	setString(&cfg.Assistant.AssistantID, "AZURE_OPENAI_ASSISTANT_ID")
	setString(&cfg.Assistant.APIVersion, "AZURE_OPENAI_API_VERSION")
	setString(&cfg.Assistant.Model, "NBASSIST_MODEL")
	setBool(&cfg.Assistant.Azure, "NBASSIST_AZURE")

	// NetBox
	setString(&cfg.NetBox.URL, "NETBOX_URL")
	setString(&cfg.NetBox.Token, "NETBOX_TOKEN")
	setDuration(&cfg.NetBox.Timeout, "NBASSIST_NETBOX_TIMEOUT")
	setUint(&cfg.NetBox.MaxRetries, "NBASSIST_NETBOX_MAX_RETRIES")

	// Orchestrator
	setDuration(&cfg.Orchestrator.PollInterval, "NBASSIST_POLL_INTERVAL")
	setDuration(&cfg.Orchestrator.PollTimeout, "NBASSIST_POLL_TIMEOUT")
	setDuration(&cfg.Orchestrator.TurnTimeout, "NBASSIST_TURN_TIMEOUT")
	setDuration(&cfg.Orchestrator.ToolTimeout, "NBASSIST_TOOL_TIMEOUT")
	setInt(&cfg.Orchestrator.MaxRounds, "NBASSIST_MAX_ROUNDS")
	setInt(&cfg.Orchestrator.MaxParallel, "NBASSIST_MAX_PARALLEL")

	setString(&cfg.Logging.Level, "NBASSIST_LOG_LEVEL")
	setString(&cfg.Logging.Service, "NBASSIST_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "NBASSIST_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "NBASSIST_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "NBASSIST_BREAKER_TIMEOUT")

	// Cache
	setBool(&cfg.Cache.Enabled, "NBASSIST_CACHE_ENABLED")
	setInt64(&cfg.Cache.L1MaxSizeMB, "NBASSIST_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "NBASSIST_CACHE_TTL")
	setString(&cfg.Cache.L2Bucket, "NBASSIST_CACHE_L2_BUCKET")

	setString(&cfg.NATS.URL, "NATS_URL")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "NBASSIST_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "NBASSIST_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "NBASSIST_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "NBASSIST_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "NBASSIST_PG_HEALTH_CHECK")

	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.OTEL.Insecure, "NBASSIST_OTEL_INSECURE")
	setFloat64(&cfg.OTEL.SampleRate, "NBASSIST_OTEL_SAMPLE_RATE")
}

// validate checks that required fields are set and timings are consistent.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Assistant.Endpoint == "" {
		return errors.New("assistant.endpoint is required (AZURE_OPENAI_ENDPOINT)")
	}
	if cfg.Assistant.APIKey == "" {
		return errors.New("assistant.api_key is required (AZURE_OPENAI_API_KEY)")
	}
	if cfg.Assistant.AssistantID == "" {
		return errors.New("assistant.assistant_id is required (AZURE_OPENAI_ASSISTANT_ID)")
	}
	if cfg.NetBox.URL == "" {
		return errors.New("netbox.url is required (NETBOX_URL)")
	}
	if cfg.NetBox.Token == "" {
		return errors.New("netbox.token is required (NETBOX_TOKEN)")
	}
	o := cfg.Orchestrator
	if o.PollInterval <= 0 {
		return errors.New("orchestrator.poll_interval must be > 0")
	}
	if o.PollTimeout < o.PollInterval {
		return errors.New("orchestrator.poll_timeout must be >= poll_interval")
	}
	if o.TurnTimeout < o.PollTimeout {
		return errors.New("orchestrator.turn_timeout must be >= poll_timeout")
	}
	if o.ToolTimeout <= 0 {
		return errors.New("orchestrator.tool_timeout must be > 0")
	}
	if o.MaxRounds < 1 {
		return errors.New("orchestrator.max_rounds must be >= 1")
	}
	if o.MaxParallel < 0 {
		return errors.New("orchestrator.max_parallel must be >= 0")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Postgres.DSN != "" && cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.OTEL.SampleRate < 0 || cfg.OTEL.SampleRate > 1 {
		return errors.New("otel.sample_rate must be within [0, 1]")
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

func setUint(dst *uint, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			*dst = uint(n)
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
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
