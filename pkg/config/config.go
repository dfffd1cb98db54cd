package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultConfigPath is the YAML file Load reads when present.
const DefaultConfigPath = "config.yaml"

// Storage backends for the persisted wizard state.
const (
	StorageBackendFile     = "file"
	StorageBackendRedis    = "redis"
	StorageBackendPostgres = "postgres"
)

// Suggestion providers for the mapping phase.
const (
	SuggestionProviderFixture   = "fixture"
	SuggestionProviderLLM       = "llm"
	SuggestionProviderAnthropic = "anthropic"
)

// Config holds all configuration for ekaya-migrate.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3480"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// LogLevel overrides the environment's default level (debug, info, warn, error)
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:""`

	// Persisted wizard state
	Storage StorageConfig `yaml:"storage"`

	// Database configuration (PostgreSQL), used by the postgres storage backend
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration, used by the redis storage backend
	Redis RedisConfig `yaml:"redis"`

	// Tracker behaviour
	Tracker TrackerConfig `yaml:"tracker"`

	// Simulated processing delays
	Simulation SimulationConfig `yaml:"simulation"`

	// Field mapping suggestion provider
	Suggestions SuggestionsConfig `yaml:"suggestions"`

	// Authentication configuration
	Auth AuthConfig `yaml:"auth"`
}

// StorageConfig selects where the wizard state record is written.
type StorageConfig struct {
	Backend string `yaml:"backend" env:"STORAGE_BACKEND" env-default:"file"`
	Key     string `yaml:"key" env:"STORAGE_KEY" env-default:"migration-wizard-state"`
	// FileDir is the directory holding one JSON file per storage key.
	FileDir string `yaml:"file_dir" env:"STORAGE_FILE_DIR" env-default:".ekaya-migrate"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"ekaya"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"ekaya_migrate"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"5"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// TrackerConfig controls phase navigation and the initial-state policy.
type TrackerConfig struct {
	// AllowUngatedNavigation lets SetCurrentPhase jump to any phase.
	AllowUngatedNavigation bool `yaml:"allow_ungated_navigation" env:"TRACKER_ALLOW_UNGATED_NAVIGATION" env-default:"false"`
	// SeedDefaultProject creates a sample project when no state is persisted.
	SeedDefaultProject bool   `yaml:"seed_default_project" env:"TRACKER_SEED_DEFAULT_PROJECT" env-default:"true"`
	DefaultProjectName string `yaml:"default_project_name" env:"TRACKER_DEFAULT_PROJECT_NAME" env-default:"Sample Migration"`
	DefaultSource      string `yaml:"default_source_dialect" env:"TRACKER_DEFAULT_SOURCE_DIALECT" env-default:"oracle"`
	DefaultTarget      string `yaml:"default_target_dialect" env:"TRACKER_DEFAULT_TARGET_DIALECT" env-default:"bigquery"`
}

// SimulationConfig controls the artificial delays of processing steps.
type SimulationConfig struct {
	StepDelay time.Duration `yaml:"step_delay" env:"SIMULATION_STEP_DELAY" env-default:"400ms"`
	Steps     int           `yaml:"steps" env:"SIMULATION_STEPS" env-default:"5"`
}

// SuggestionsConfig selects and configures the field mapping suggestion provider.
type SuggestionsConfig struct {
	Provider string `yaml:"provider" env:"SUGGESTIONS_PROVIDER" env-default:"fixture"`
	// LLM settings, used when Provider is "llm" or "anthropic".
	// For "anthropic" the base URL is optional and the API key is required.
	LLMBaseURL string `yaml:"llm_base_url" env:"LLM_BASE_URL" env-default:""`
	LLMModel   string `yaml:"llm_model" env:"LLM_MODEL" env-default:""`
	LLMAPIKey  string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether bearer token signatures are checked.
	// Set to false for local development without an auth server.
	EnableVerification bool   `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"false"`
	JWTSecret          string `yaml:"-" env:"AUTH_JWT_SECRET"` // Secret - not in YAML

	// RequireAuth rejects anonymous calls to mutating wizard routes.
	RequireAuth bool `yaml:"require_auth" env:"AUTH_REQUIRE_AUTH" env-default:"false"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// When config.yaml does not exist, configuration comes from the environment alone.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFrom(DefaultConfigPath, version)
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, fs.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// validate rejects unknown enum values and incomplete provider settings.
func (c *Config) validate() error {
	switch c.Storage.Backend {
	case StorageBackendFile, StorageBackendRedis, StorageBackendPostgres:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Key == "" {
		return fmt.Errorf("storage key must not be empty")
	}

	switch c.Suggestions.Provider {
	case SuggestionProviderFixture:
	case SuggestionProviderLLM:
		if c.Suggestions.LLMBaseURL == "" || c.Suggestions.LLMModel == "" {
			return fmt.Errorf("llm suggestion provider requires llm_base_url and llm_model")
		}
	case SuggestionProviderAnthropic:
		if c.Suggestions.LLMModel == "" || c.Suggestions.LLMAPIKey == "" {
			return fmt.Errorf("anthropic suggestion provider requires llm_model and LLM_API_KEY")
		}
	default:
		return fmt.Errorf("unknown suggestions provider %q", c.Suggestions.Provider)
	}

	if c.Auth.EnableVerification && c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required when auth verification is enabled")
	}

	if c.Simulation.Steps < 0 || c.Simulation.StepDelay < 0 {
		return fmt.Errorf("simulation steps and step_delay must not be negative")
	}

	return nil
}

// ConnectionString returns a PostgreSQL connection URL.
func (c *DatabaseConfig) ConnectionString() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Addr returns the host:port address of the Redis server.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
