// Package config provides YAML-based configuration with environment
// overrides for deployment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int      `yaml:"port"`
	BindAddress  string   `yaml:"bind_address"`
	EnableCORS   bool     `yaml:"enable_cors"`
	AllowOrigins []string `yaml:"allow_origins"`
	ReadTimeout  int      `yaml:"read_timeout_seconds"`
	WriteTimeout int      `yaml:"write_timeout_seconds"`
	IdleTimeout  int      `yaml:"idle_timeout_seconds"`
	BodyLimit    string   `yaml:"body_limit"`
}

// StorageConfig contains document store settings.
type StorageConfig struct {
	DataDirectory string `yaml:"data_directory"`
	DatabasePath  string `yaml:"database_path"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	AllowFileDeletion bool `yaml:"allow_file_deletion"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	EnableRequestLogging bool `yaml:"enable_request_logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8000,
			BindAddress: "0.0.0.0",
			EnableCORS:  true,
			AllowOrigins: []string{
				"http://localhost:3000", "http://127.0.0.1:3000",
				"http://localhost:5173", "http://127.0.0.1:5173",
			},
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "256M",
		},
		Storage: StorageConfig{
			DataDirectory: "./data",
		},
		Security: SecurityConfig{
			AllowFileDeletion: true,
		},
		Logging: LoggingConfig{
			EnableRequestLogging: true,
		},
	}
}

// Load reads configuration from the given YAML file, falling back to
// defaults when the file does not exist, then applies environment
// overrides (SPARELENS_DB_PATH, SPARELENS_PORT).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults apply.
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	if v := os.Getenv("SPARELENS_DB_PATH"); v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v := os.Getenv("SPARELENS_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SPARELENS_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}

	return cfg, nil
}

// EnsureDirectories creates the data directory tree.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Storage.DataDirectory, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// GetDatabasePath returns the document store location, defaulting to a
// file inside the data directory.
func (c *Config) GetDatabasePath() string {
	if c.Storage.DatabasePath != "" {
		return c.Storage.DatabasePath
	}
	return filepath.Join(c.Storage.DataDirectory, "sparelens.duckdb")
}

// GetServerAddr returns the host:port the server listens on.
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}
