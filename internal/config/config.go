package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultMaxRounds bounds the number of decisions an automatic run may apply.
	DefaultMaxRounds = 64

	// DefaultMaxBodyBytes caps request bodies accepted by the HTTP API.
	DefaultMaxBodyBytes = 1 << 20
)

// Config holds all configuration for erschema.
type Config struct {
	Neo4j   Neo4jConfig   `mapstructure:"neo4j"`
	Claude  ClaudeConfig  `mapstructure:"claude"`
	Resolve ResolveConfig `mapstructure:"resolve"`
	Logging LoggingConfig `mapstructure:"logging"`
	API     APIConfig     `mapstructure:"api"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	ListenAddr   string `mapstructure:"listen_addr"`
	AuthToken    string `mapstructure:"auth_token"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
}

// Neo4jConfig holds graph database connection settings. An empty URI disables
// schema persistence.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// String returns a safe representation of Neo4jConfig with the password masked.
func (c Neo4jConfig) String() string {
	return fmt.Sprintf("Neo4jConfig{URI:%s, Username:%s, Password:%s, Database:%s}",
		c.URI, c.Username, maskAPIKey(c.Password), c.Database)
}

// ClaudeConfig holds Anthropic Claude API settings.
type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// String returns a safe representation of ClaudeConfig with the API key masked.
func (c ClaudeConfig) String() string {
	masked := maskAPIKey(c.APIKey)
	return fmt.Sprintf("ClaudeConfig{APIKey:%s, Model:%s}", masked, c.Model)
}

// maskAPIKey shows first 4 + last 4 chars, replacing the middle with asterisks.
func maskAPIKey(key string) string {
	const visible = 4
	if len(key) <= visible*2 {
		return "***"
	}
	return key[:visible] + "****" + key[len(key)-visible:]
}

// ResolveConfig holds settings for automatic resolution runs.
type ResolveConfig struct {
	MaxRounds int `mapstructure:"max_rounds"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("neo4j.uri", "")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "neo4j")

	v.SetDefault("claude.model", "claude-haiku-4-5-20251001")

	v.SetDefault("resolve.max_rounds", DefaultMaxRounds)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.auth_token", "")
	v.SetDefault("api.max_body_bytes", DefaultMaxBodyBytes)

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".erschema"))
	v.AddConfigPath(".")

	// Environment variables: ERSCHEMA_NEO4J_URI etc.
	v.SetEnvPrefix("ERSCHEMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("claude.api_key", "ANTHROPIC_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	if c.Resolve.MaxRounds <= 0 {
		return fmt.Errorf("resolve.max_rounds must be greater than 0")
	}
	if c.API.MaxBodyBytes <= 0 {
		return fmt.Errorf("api.max_body_bytes must be greater than 0")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	if c.Neo4j.URI != "" && c.Neo4j.Username == "" {
		return fmt.Errorf("neo4j.username must not be empty when neo4j.uri is set")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
