package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

var (
	ErrInvalidServerAddr  = errors.New("server address must be set")
	ErrInvalidStoragePath = errors.New("storage path must be set")
	ErrInvalidIndex       = errors.New("index must be one of: memory, badger")
	ErrInvalidWorkers     = errors.New("workers must not be negative")
	ErrInvalidParallel    = errors.New("parallel transfers must not be negative")
	ErrMissingServerURL   = errors.New("server URL is not configured, run `reshare conf`")
	ErrInvalidServerURL   = errors.New("server URL must be an absolute http(s) URL")
)

const (
	IndexMemory = "memory"
	IndexBadger = "badger"

	// EnvPrefix prefixes every environment variable read by viper
	EnvPrefix = "RESHARE"

	configRelPath = "reshare/config.yaml"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Client   ClientConfig   `mapstructure:"client"`
	Transfer TransferConfig `mapstructure:"transfer"`
}

// ServerConfig configures `reshare serve`
type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	StoragePath string `mapstructure:"storage"`
	Index       string `mapstructure:"index"`
	Workers     int    `mapstructure:"workers"`
}

// ClientConfig is persisted by `reshare conf`
type ClientConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// TransferConfig tunes the client side of put and get
type TransferConfig struct {
	Parallel int `mapstructure:"parallel"`
	Workers  int `mapstructure:"workers"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":8080",
			StoragePath: "storage",
			Index:       IndexMemory,
			Workers:     0, // NumCPU
		},
		Transfer: TransferConfig{
			Parallel: 0, // unbounded
			Workers:  0,
		},
	}
}

// SetDefaults registers the defaults with v so that unset keys resolve to them
func SetDefaults(v *viper.Viper) {
	d := NewDefaultConfig()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.storage", d.Server.StoragePath)
	v.SetDefault("server.index", d.Server.Index)
	v.SetDefault("server.workers", d.Server.Workers)
	v.SetDefault("client.server_url", d.Client.ServerURL)
	v.SetDefault("transfer.parallel", d.Transfer.Parallel)
	v.SetDefault("transfer.workers", d.Transfer.Workers)
}

// Load decodes the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return cfg, nil
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	if c.Transfer.Parallel < 0 {
		return ErrInvalidParallel
	}
	if c.Transfer.Workers < 0 || c.Server.Workers < 0 {
		return ErrInvalidWorkers
	}
	return nil
}

// ValidateServer checks the settings `reshare serve` depends on
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.Addr == "" {
		return ErrInvalidServerAddr
	}
	if c.Server.StoragePath == "" {
		return ErrInvalidStoragePath
	}
	if c.Server.Index != IndexMemory && c.Server.Index != IndexBadger {
		return ErrInvalidIndex
	}
	return nil
}

// ValidateClient checks the settings the client commands depend on
func (c *Config) ValidateClient() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Client.ServerURL == "" {
		return ErrMissingServerURL
	}
	return ValidateServerURL(c.Client.ServerURL)
}

// ValidateServerURL checks that raw is an absolute http or https URL
func ValidateServerURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidServerURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidServerURL
	}
	return nil
}

// DefaultFile returns the client configuration file under the XDG config home
func DefaultFile() (string, error) {
	path, err := xdg.ConfigFile(configRelPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	return path, nil
}

// SaveServerURL persists the server URL into the file used by v, or the default
// file when v has not read one
func SaveServerURL(v *viper.Viper, serverURL string) (string, error) {
	if err := ValidateServerURL(serverURL); err != nil {
		return "", err
	}

	path := v.ConfigFileUsed()
	if path == "" {
		var err error
		if path, err = DefaultFile(); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	v.Set("client.server_url", serverURL)
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return path, nil
}
