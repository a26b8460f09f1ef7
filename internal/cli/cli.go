// Package cli implements the flowcanvas command-line interface.
//
// The commands read a persisted flow (JSON or YAML), lay it out and either
// write the result, render it, resolve a drop point against it, or serve the
// engine over HTTP. Settings come from a TOML file (see package config);
// command-line flags override them.
//
// # Commands
//
//   - layout: compute the layout document for a flow
//   - depth: print the nested-branch depth of a flow
//   - render: write DOT, Graphviz SVG or canvas SVG output
//   - drop: resolve one drop point to its candidate anchor
//   - drag: interactively move a drop point over the canvas anchors
//   - serve: run the HTTP API
//   - cache, config: inspect and manage local state
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcanvas/pkg/buildinfo"
	"github.com/matzehuels/flowcanvas/pkg/cache"
	"github.com/matzehuels/flowcanvas/pkg/config"
	"github.com/matzehuels/flowcanvas/pkg/flow"
	"github.com/matzehuels/flowcanvas/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "flowcanvas"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded before any subcommand runs.
	Config     config.Config
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Flowcanvas lays out automation flows for a visual editor",
		Long:         `Flowcanvas computes the card, connector and drop-target geometry of automation flows: triggers, actions, loops and branches laid out as a vertical tree.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/flowcanvas/config.toml)")

	// Register all subcommands
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.depthCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.dropCommand())
	root.AddCommand(c.dragCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg
	c.Logger.Debug("loaded config", "path", c.configPath, "cache", cfg.Cache.Backend)
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cc, keyer, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(cc, keyer, c.Logger)
	runner.TTL = c.Config.Cache.TTL
	return runner, nil
}

// newCache opens the configured backend. The redis backend namespaces its
// own keys; the others get a scoped keyer when a prefix is set.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, cache.Keyer, error) {
	cfg := c.Config.Cache
	if noCache {
		return cache.NewNullCache(), nil, nil
	}

	var keyer cache.Keyer
	if cfg.Prefix != "" && cfg.Backend != config.BackendRedis {
		keyer = cache.NewScopedKeyer(nil, cfg.Prefix)
	}

	switch cfg.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil, nil
	case config.BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL, cfg.Prefix)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis cache: %w", err)
		}
		return rc, nil, nil
	case config.BackendMongo:
		mc, err := cache.NewMongoCache(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			return nil, nil, fmt.Errorf("open mongo cache: %w", err)
		}
		return mc, keyer, nil
	}

	dir, err := c.cacheDir()
	if err != nil {
		c.Logger.Warn("no cache directory, caching disabled", "error", err)
		return cache.NewNullCache(), nil, nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, nil, err
	}
	return fc, keyer, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the file cache directory: the configured one, or the XDG
// default (~/.cache/flowcanvas/).
func (c *CLI) cacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return cacheDir()
}

// cacheDir returns the cache directory using XDG standard (~/.cache/flowcanvas/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Input Helpers
// =============================================================================

// readFlow loads a flow file, or stdin when path is "-".
func readFlow(path string) (*flow.Flow, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return pipeline.ParseFlow(data, "")
	}
	fl, err := flow.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load flow %s: %w", path, err)
	}
	return fl, nil
}

// layoutOptions returns pipeline options carrying the configured geometry.
func (c *CLI) layoutOptions() pipeline.Options {
	return pipeline.Options{
		Geometry: c.Config.Geometry,
		Logger:   c.Logger,
	}
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	return strings.Split(s, ",")
}

// outputBase derives the default output path stem from the input file.
func outputBase(input string) string {
	if input == "-" {
		return "flow"
	}
	return strings.TrimSuffix(input, filepath.Ext(input))
}
