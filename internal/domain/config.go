package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string           `mapstructure:"environment"`
	Completion  CompletionConfig `mapstructure:"completion"`
	Pipeline    PipelineConfig   `mapstructure:"pipeline"`
	Server      ServerConfig     `mapstructure:"server"`
	Storage     StorageConfig    `mapstructure:"storage"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	MCP         MCPConfig        `mapstructure:"mcp"`
}

// CompletionConfig represents the text completion service configuration
type CompletionConfig struct {
	Provider    string        `mapstructure:"provider"` // "openai", "ollama"
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	RateLimit   float64       `mapstructure:"rate_limit"` // requests per second, 0 disables
	Breaker     BreakerConfig `mapstructure:"breaker"`
	Cache       CacheConfig   `mapstructure:"cache"`
}

// BreakerConfig represents circuit breaker settings for the completion service
type BreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

// CacheConfig represents completion cache configuration
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	MemorySize int           `mapstructure:"memory_size"`
	RedisURL   string        `mapstructure:"redis_url"` // empty disables the redis tier
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
}

// PipelineConfig represents batch classification settings
type PipelineConfig struct {
	DataDir        string `mapstructure:"data_dir"`
	DataSplit      string `mapstructure:"data_split"` // "train", "validation", "test"
	InputPath      string `mapstructure:"input_path"` // overrides data_dir/data_split.csv
	OutputDir      string `mapstructure:"output_dir"`
	Workers        int    `mapstructure:"workers"`
	VocabularyFile string `mapstructure:"vocabulary_file"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// StorageConfig represents optional persistence of classification runs
type StorageConfig struct {
	Driver         string `mapstructure:"driver"` // "none", "sqlite", "postgres"
	SQLitePath     string `mapstructure:"sqlite_path"`
	PostgresURL    string `mapstructure:"postgres_url"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"` // "json", "text"
	Output   string `mapstructure:"output"` // "stdout", "stderr", "file"
	Filename string `mapstructure:"filename"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
}
