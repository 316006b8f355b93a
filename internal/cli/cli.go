package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depsgraph/pkg/buildinfo"
	"github.com/matzehuels/depsgraph/pkg/cache"
	"github.com/matzehuels/depsgraph/pkg/pipeline"
	"github.com/matzehuels/depsgraph/pkg/scene"
)

// appName is the application name used for directories and display.
const appName = "depsgraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a CLI whose logger writes to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Build and evaluate scene dependency graphs",
		Long: `depsgraph builds the evaluation dependency graph of a scene described in
TOML, evaluates it frame by frame, and exports the graph for inspection.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.evalCommand())
	root.AddCommand(c.tagCommand())
	root.AddCommand(c.dotCommand())
	root.AddCommand(c.scrubCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner loads the scene at path and returns a runner over it. Unless
// opts names a logger, the runner logs through the logger carried by ctx,
// tagged with the scene file.
func newRunner(ctx context.Context, path string, opts pipeline.Options) (*pipeline.Runner, error) {
	s, _, err := scene.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = sceneLogger(ctx, path)
	}
	return pipeline.NewRunner(s, opts)
}

func newCache(noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return cache.NewNullCache()
	}
	return fc
}

// cacheDir returns the cache directory using XDG standard (~/.cache/depsgraph/).
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
