// Package cli implements the alchemy command-line interface.
package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/alchemy-engine/alchemy/internal/config"
	"github.com/alchemy-engine/alchemy/internal/core/observability/log"
)

const appName = "alchemy"

// CLI holds state shared by all commands.
type CLI struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	verbose    bool
}

func New(out, errOut io.Writer) *CLI {
	return &CLI{out: out, errOut: errOut}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Alchemy stores and serves scene graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (.yaml, .yml or .toml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.verifyCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.pushCommand())
	root.AddCommand(c.pullCommand())
	root.AddCommand(c.listCommand())

	return root
}

func (c *CLI) loadConfig() (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, err
	}
	if c.verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// logger writes human-readable entries to the error stream.
func (c *CLI) logger() log.Log {
	level := log.LevelWarn
	if c.verbose {
		level = log.LevelDebug
	}
	return log.New(level, log.Options{Encoding: "console", Output: c.errOut})
}
