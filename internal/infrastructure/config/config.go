package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/AgentOS/pipefs/internal/pipefs"
	"github.com/GriffinCanCode/AgentOS/pipefs/internal/vfs"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	PipeFS    PipeFSConfig    `yaml:"pipefs" toml:"pipefs"`
	VFS       VFSConfig       `yaml:"vfs" toml:"vfs"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000" yaml:"port" toml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" yaml:"host" toml:"host"`

	GRPCPort    string `envconfig:"GRPC_PORT" default:"50061" yaml:"grpc_port" toml:"grpc_port"`
	GRPCEnabled bool   `envconfig:"GRPC_ENABLED" default:"true" yaml:"grpc_enabled" toml:"grpc_enabled"`

	// MaxConnections caps concurrent HTTP connections; 0 means unlimited.
	MaxConnections int `envconfig:"MAX_CONNECTIONS" default:"512" yaml:"max_connections" toml:"max_connections"`
}

// PipeFSConfig sizes the pipe table.
type PipeFSConfig struct {
	MaxPipes      int `envconfig:"PIPEFS_MAX_PIPES" default:"16" yaml:"max_pipes" toml:"max_pipes"`
	MaxNameLength int `envconfig:"PIPEFS_MAX_NAME" default:"64" yaml:"max_name" toml:"max_name"`
	BufferSize    int `envconfig:"PIPEFS_BUFFER_SIZE" default:"256" yaml:"buffer_size" toml:"buffer_size"`
}

// VFSConfig holds limits of the virtual filesystem layer.
type VFSConfig struct {
	MaxOpenFiles int `envconfig:"VFS_MAX_OPEN_FILES" default:"128" yaml:"max_open_files" toml:"max_open_files"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"rps" toml:"rps"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled" toml:"enabled"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile loads the environment and then overlays the YAML or TOML file
// at path, chosen by extension. Keys absent from the file keep their
// environment or default value.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported config file type %q", ErrInvalid, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects capacities the filesystem cannot be built with.
func (c *Config) Validate() error {
	var errs []error
	if c.PipeFS.MaxPipes <= 0 {
		errs = append(errs, fmt.Errorf("%w: pipefs max_pipes must be positive", ErrInvalid))
	}
	if c.PipeFS.MaxNameLength <= 0 {
		errs = append(errs, fmt.Errorf("%w: pipefs max_name must be positive", ErrInvalid))
	}
	if c.PipeFS.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: pipefs buffer_size must be positive", ErrInvalid))
	}
	if c.VFS.MaxOpenFiles <= 0 {
		errs = append(errs, fmt.Errorf("%w: vfs max_open_files must be positive", ErrInvalid))
	}
	if c.Server.MaxConnections < 0 {
		errs = append(errs, fmt.Errorf("%w: server max_connections must not be negative", ErrInvalid))
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("%w: rate limit rps must be positive", ErrInvalid))
	}
	return errors.Join(errs...)
}

// PipeFSOptions converts the section into the filesystem's own config.
func (c PipeFSConfig) PipeFSOptions() pipefs.Config {
	return pipefs.Config{
		MaxPipes:      c.MaxPipes,
		MaxNameLength: c.MaxNameLength,
		BufferSize:    c.BufferSize,
	}
}

// VFSOptions converts the section into the VFS config.
func (c VFSConfig) VFSOptions() vfs.Config {
	return vfs.Config{MaxOpenFiles: c.MaxOpenFiles}
}

// Addr is the HTTP listen address.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// GRPCAddr is the gRPC listen address.
func (c ServerConfig) GRPCAddr() string {
	return net.JoinHostPort(c.Host, c.GRPCPort)
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8000",
			Host:           "0.0.0.0",
			GRPCPort:       "50061",
			GRPCEnabled:    true,
			MaxConnections: 512,
		},
		PipeFS: PipeFSConfig{
			MaxPipes:      16,
			MaxNameLength: 64,
			BufferSize:    256,
		},
		VFS: VFSConfig{
			MaxOpenFiles: 128,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
