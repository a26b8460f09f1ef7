// Package config loads flowcanvas settings from a TOML file.
//
// Every table is optional and every key inside a table overrides only
// itself; anything not named keeps its default. A missing file is not an
// error.
//
//	[geometry]
//	node_width = 280
//	acceptance_radius = 200
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//
//	[server]
//	addr = ":8080"
//	read_timeout = "10s"
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/flowcanvas/pkg/errors"
	"github.com/matzehuels/flowcanvas/pkg/geometry"
)

const appName = "flowcanvas"

// Cache backends.
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

// Config is the complete configuration.
type Config struct {
	Geometry geometry.Geometry `toml:"geometry"`
	Cache    Cache             `toml:"cache"`
	Server   Server            `toml:"server"`
}

// Cache selects and configures the layout cache backend.
type Cache struct {
	Backend string `toml:"backend"`
	// Dir is the file backend directory; empty means the XDG cache dir.
	Dir string `toml:"dir"`
	// Prefix namespaces keys in shared backends.
	Prefix string        `toml:"prefix"`
	TTL    time.Duration `toml:"ttl"`

	RedisURL        string `toml:"redis_url"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// Server configures `flowcanvas serve`.
type Server struct {
	Addr            string        `toml:"addr"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `toml:"max_body_bytes"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Geometry: geometry.Default(),
		Cache: Cache{
			Backend:       BackendFile,
			TTL:           7 * 24 * time.Hour,
			MongoDatabase: appName,
		},
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/flowcanvas/config.toml, falling back
// to ~/.config.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load reads the file at path on top of [Default]. An empty path means
// [DefaultPath]; a missing file at the default path yields the defaults,
// while a missing explicit path is FILE_NOT_FOUND.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "open config %s", path)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses TOML from r on top of [Default] and validates the result.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidInput, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the geometry table and the cache and server settings.
func (c Config) Validate() error {
	if err := c.Geometry.Validate(); err != nil {
		return err
	}

	backends := []string{BackendNone, BackendFile, BackendRedis, BackendMongo}
	if !slices.Contains(backends, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidInput, "cache.backend must be one of %s, got %q",
			strings.Join(backends, ", "), c.Cache.Backend)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisURL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "cache.redis_url is required for the redis backend")
	}
	if c.Cache.Backend == BackendMongo && c.Cache.MongoURI == "" {
		return errors.New(errors.ErrCodeInvalidInput, "cache.mongo_uri is required for the mongo backend")
	}
	if c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "cache.ttl must not be negative")
	}
	if c.Server.Addr == "" {
		return errors.New(errors.ErrCodeInvalidInput, "server.addr must not be empty")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "server.max_body_bytes must be positive")
	}
	return nil
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
