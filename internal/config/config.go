package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/rbg-research/SMM4H-2025/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	return NewManagerWithFile("")
}

// NewManagerWithFile creates a configuration manager that reads an explicit
// config file instead of searching the default paths.
func NewManagerWithFile(configFile string) (*Manager, error) {
	m := &Manager{configFile: configFile}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/insomnia-classifier/")
	}

	// Set environment variable prefix and enable automatic env binding
	v.SetEnvPrefix("INSOMNIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Completion service defaults
	v.SetDefault("completion.provider", "openai")
	v.SetDefault("completion.base_url", "http://localhost:8000/v1")
	v.SetDefault("completion.model", "google/gemma-2-2b-it")
	v.SetDefault("completion.api_key", "")
	v.SetDefault("completion.timeout", "120s")
	v.SetDefault("completion.temperature", 0.0)
	v.SetDefault("completion.max_tokens", 512)
	v.SetDefault("completion.rate_limit", 0)

	v.SetDefault("completion.breaker.enabled", true)
	v.SetDefault("completion.breaker.max_requests", 1)
	v.SetDefault("completion.breaker.interval", "60s")
	v.SetDefault("completion.breaker.timeout", "30s")
	v.SetDefault("completion.breaker.min_requests", 5)
	v.SetDefault("completion.breaker.failure_ratio", 0.8)

	v.SetDefault("completion.cache.enabled", true)
	v.SetDefault("completion.cache.memory_size", 1000)
	v.SetDefault("completion.cache.redis_url", "")
	v.SetDefault("completion.cache.default_ttl", "24h")
	v.SetDefault("completion.cache.max_retries", 3)
	v.SetDefault("completion.cache.pool_size", 10)

	// Pipeline defaults
	v.SetDefault("pipeline.data_dir", "data/")
	v.SetDefault("pipeline.data_split", "test")
	v.SetDefault("pipeline.input_path", "")
	v.SetDefault("pipeline.output_dir", "results/")
	v.SetDefault("pipeline.workers", 1)
	v.SetDefault("pipeline.vocabulary_file", "")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.idle_timeout", "120s")

	// Storage defaults
	v.SetDefault("storage.driver", "none")
	v.SetDefault("storage.sqlite_path", "results/runs.db")
	v.SetDefault("storage.postgres_url", "")
	v.SetDefault("storage.migrations_path", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.filename", "")

	// MCP defaults
	v.SetDefault("mcp.server_name", "insomnia-classifier")
	v.SetDefault("mcp.server_version", "v0.1.0")
}

// Set overrides a single key, used by command-line flags.
func (m *Manager) Set(key string, value interface{}) error {
	m.v.Set(key, value)
	config := &domain.Config{}
	if err := m.v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	m.config = config
	return nil
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetCompletionConfig returns completion service configuration
func (m *Manager) GetCompletionConfig() *domain.CompletionConfig {
	return &m.config.Completion
}

// GetPipelineConfig returns batch pipeline configuration
func (m *Manager) GetPipelineConfig() *domain.PipelineConfig {
	return &m.config.Pipeline
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetStorageConfig returns storage configuration
func (m *Manager) GetStorageConfig() *domain.StorageConfig {
	return &m.config.Storage
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	switch config.Completion.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("invalid completion provider: %s", config.Completion.Provider)
	}
	if config.Completion.BaseURL == "" {
		return fmt.Errorf("completion base URL is required")
	}
	if config.Completion.MaxTokens <= 0 {
		return fmt.Errorf("invalid completion max_tokens: %d", config.Completion.MaxTokens)
	}
	if config.Completion.RateLimit < 0 {
		return fmt.Errorf("invalid completion rate_limit: %v", config.Completion.RateLimit)
	}

	if config.Pipeline.Workers < 1 {
		return fmt.Errorf("invalid pipeline workers: %d", config.Pipeline.Workers)
	}
	if config.Pipeline.OutputDir == "" {
		return fmt.Errorf("pipeline output directory is required")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Storage.Driver {
	case "none", "":
	case "sqlite":
		if config.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the sqlite storage driver")
		}
	case "postgres":
		if config.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for the postgres storage driver")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s", config.Storage.Driver)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
