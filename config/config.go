package config

import (
	"PoolServer/pool"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "POOL_SERVER_"

var (
	ErrInvalidListenAddress   = errors.New("listen_address must not be empty")
	ErrInvalidWorkers         = errors.New("workers must be positive")
	ErrInvalidReadBufferSize  = errors.New("read_buffer_size must be positive")
	ErrInvalidPanicPolicy     = errors.New("invalid panic_policy")
	ErrInvalidShutdownTimeout = errors.New("invalid shutdown_timeout")
)

// Config is the runtime configuration of the server.
type Config struct {
	ListenAddress   string `yaml:"listen_address" json:"listen_address"`
	ControlAddress  string `yaml:"control_address" json:"control_address"` // gRPC control service, empty disables it
	AdminAddress    string `yaml:"admin_address" json:"admin_address"`     // HTTP health and metrics, empty disables it
	Workers         int    `yaml:"workers" json:"workers"`
	ReadBufferSize  int    `yaml:"read_buffer_size" json:"read_buffer_size"`
	PanicPolicy     string `yaml:"panic_policy" json:"panic_policy"`
	ShutdownTimeout string `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	Log LogConfig `yaml:"log" json:"log"`
}

type LogConfig struct {
	Level       string `yaml:"level" json:"level"`
	Development bool   `yaml:"development" json:"development"`
}

// Default returns the configuration used when no file or environment overrides are given.
func Default() *Config {
	return &Config{
		ListenAddress:   "127.0.0.1:3000",
		ControlAddress:  "127.0.0.1:3001",
		AdminAddress:    "127.0.0.1:3002",
		Workers:         4,
		ReadBufferSize:  1024,
		PanicPolicy:     pool.PanicPolicyRecover.String(),
		ShutdownTimeout: "30s",
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the optional file at path and the environment.
// A .env file in the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := Default()
	if path != "" {
		if err := config.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFile reads a YAML or JSON file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	config := Default()
	if err := config.loadFile(path); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format: %s", ext)
	}
	return nil
}

func (c *Config) applyEnv() error {
	stringVars := map[string]*string{
		"LISTEN":           &c.ListenAddress,
		"CONTROL":          &c.ControlAddress,
		"ADMIN":            &c.AdminAddress,
		"PANIC_POLICY":     &c.PanicPolicy,
		"SHUTDOWN_TIMEOUT": &c.ShutdownTimeout,
		"LOG_LEVEL":        &c.Log.Level,
	}
	for key, target := range stringVars {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*target = v
		}
	}

	intVars := map[string]*int{
		"WORKERS":          &c.Workers,
		"READ_BUFFER_SIZE": &c.ReadBufferSize,
	}
	for key, target := range intVars {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s=%q: %w", envPrefix, key, v, err)
			}
			*target = n
		}
	}

	if v, ok := os.LookupEnv(envPrefix + "LOG_DEVELOPMENT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sLOG_DEVELOPMENT=%q: %w", envPrefix, v, err)
		}
		c.Log.Development = b
	}
	return nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return ErrInvalidListenAddress
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.ReadBufferSize <= 0 {
		return ErrInvalidReadBufferSize
	}
	if _, err := pool.ParsePanicPolicy(c.PanicPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPanicPolicy, err)
	}
	if _, err := c.ShutdownTimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// ShutdownTimeoutDuration parses ShutdownTimeout. Zero means wait without a deadline.
func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidShutdownTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", ErrInvalidShutdownTimeout, c.ShutdownTimeout)
	}
	return d, nil
}

// PoolPanicPolicy returns the parsed panic policy. Call Validate first.
func (c *Config) PoolPanicPolicy() pool.PanicPolicy {
	policy, _ := pool.ParsePanicPolicy(c.PanicPolicy)
	return policy
}
