// Package config loads trackyard configuration.
//
// Config file locations (priority order):
//  1. $TRACKYARD_CONFIG
//  2. ./trackyard.yaml
//  3. $XDG_CONFIG_HOME/trackyard/config.yaml
//  4. ~/.config/trackyard/config.yaml
//
// Missing files are not an error: Load returns the defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigPath is the environment variable for an explicit config path.
	EnvConfigPath = "TRACKYARD_CONFIG"
	// ConfigFileName is the config file name looked up in the working directory.
	ConfigFileName = "trackyard.yaml"
	// ConfigDirName is the config directory name under XDG.
	ConfigDirName = "trackyard"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the full configuration.
type Config struct {
	Camera CameraConfig `yaml:"camera"`
	Render RenderConfig `yaml:"render"`
	Rules  RulesConfig  `yaml:"rules"`
	Cache  CacheConfig  `yaml:"cache"`
	Server ServerConfig `yaml:"server"`
}

// CameraConfig is the default viewport for exports.
type CameraConfig struct {
	// Scale is in meters per pixel. Zero fits the whole world.
	Scale  float64 `yaml:"scale"`
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
}

// RenderConfig holds export options.
type RenderConfig struct {
	Formats  []string `yaml:"formats"`
	Grid     bool     `yaml:"grid"`
	Editable bool     `yaml:"editable"`
	// Tolerance is the polyline flattening tolerance in meters for JSON.
	Tolerance float64 `yaml:"tolerance"`
	// Assets is the directory background bitmap paths are resolved in.
	Assets string `yaml:"assets"`
}

// RulesConfig tunes how scripts are replayed.
type RulesConfig struct {
	// StrictMoves turns a refused move into a replay error.
	StrictMoves bool `yaml:"strict_moves"`
}

// CacheConfig selects the snapshot cache backend.
type CacheConfig struct {
	Backend string `yaml:"backend"`
	// Dir overrides the file cache directory.
	Dir       string   `yaml:"dir,omitempty"`
	RedisURL  string   `yaml:"redis_url,omitempty"`
	Namespace string   `yaml:"namespace,omitempty"`
	TTL       Duration `yaml:"ttl,omitempty"`
}

// ServerConfig configures trackyard serve.
type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Camera.Width == 0 {
		c.Camera.Width = 1200
	}
	if c.Camera.Height == 0 {
		c.Camera.Height = 800
	}
	if len(c.Render.Formats) == 0 {
		c.Render.Formats = []string{"svg"}
	}
	if c.Render.Tolerance == 0 {
		c.Render.Tolerance = 0.5
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheFile
	}
	if c.Cache.Namespace == "" {
		c.Cache.Namespace = "trackyard:"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(10 * time.Second)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(30 * time.Second)
	}
}

// Validate checks values a user can get wrong.
func (c *Config) Validate() error {
	if c.Camera.Scale < 0 {
		return fmt.Errorf("camera.scale must not be negative, got %v", c.Camera.Scale)
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera size must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q (must be one of: file, redis, none)", c.Cache.Backend)
	}
	return nil
}

// Load finds and loads the config file, or returns defaults if none is
// found. It also returns the path that was loaded.
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return Default(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, path, nil
}

// Save writes the config to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// FindConfigPath returns the first existing config file in priority order,
// or "" when there is none.
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		if fileExists(path) {
			return path
		}
	}

	if fileExists(ConfigFileName) {
		if abs, err := filepath.Abs(ConfigFileName); err == nil {
			return abs
		}
		return ConfigFileName
	}

	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		path := filepath.Join(xdgHome, ConfigDirName, "config.yaml")
		if fileExists(path) {
			return path
		}
	}

	if home := os.Getenv("HOME"); home != "" {
		path := filepath.Join(home, ".config", ConfigDirName, "config.yaml")
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Duration wraps time.Duration for YAML unmarshaling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
