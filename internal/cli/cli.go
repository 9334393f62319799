// Package cli implements the smartboard command-line interface.
//
// Running smartboard with no command opens the desktop board. The other
// commands serve a board to a browser, export or inspect saved documents
// and find boards on the local network.
//
// All commands support --verbose (-v) for debug-level logging and --config
// to read settings from a TOML file other than the default one.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"SmartBoard/internal/config"
	"SmartBoard/internal/store"
)

const appName = "smartboard"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersion sets the build information shown by --version.
func SetVersion(v, c, d string) {
	version, commit, date = v, c, d
}

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	configPath string
}

// New creates a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), Config: config.Default()}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	desktop := c.desktopCommand()
	root := &cobra.Command{
		Use:          appName,
		Short:        "SmartBoard is an infinite whiteboard",
		Long:         `SmartBoard is a pen-first whiteboard with pages, shapes, notes and images. It runs as a desktop window or serves the board to a browser on the local network.`,
		Version:      version,
		SilenceUsage: true,
		Args:         desktop.Args,
		RunE:         desktop.RunE,
	}
	root.SetVersionTemplate(fmt.Sprintf("%s %s\ncommit: %s\nbuilt: %s\n", appName, version, commit, date))
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default is the user config dir)")
	root.Flags().AddFlagSet(desktop.Flags())

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return c.loadConfig()
	}

	root.AddCommand(desktop)
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.keysCommand())
	root.AddCommand(c.versionCommand())

	return root
}

// loadConfig reads --config, or the default file when it exists.
func (c *CLI) loadConfig() error {
	path := c.configPath
	explicit := path != ""
	if !explicit {
		p, err := config.DefaultPath()
		if err != nil {
			c.Logger.Debug("no config dir", "err", err)
			return nil
		}
		path = p
	}
	cfg, unknown, err := config.Load(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
		c.Logger.Debug("no config file", "path", path)
		return nil
	case err != nil:
		return err
	}
	for _, k := range unknown {
		c.Logger.Warn("unknown config key", "key", k, "path", path)
	}
	c.Config = cfg
	c.Logger.Debug("loaded config", "path", path)
	return nil
}

func (c *CLI) newStore() (*store.FileStore, error) {
	return store.NewFileStore(c.Config.Data.Dir, c.Logger)
}
