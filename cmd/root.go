// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/pr-histogram/internal/config"
)

// globalOptions holds the flags shared by every command.
type globalOptions struct {
	configFile string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "pr-histogram",
		Short: "A CLI tool to chart a user's pull request activity per month.",
		Long: `pr-histogram fetches the pull requests a GitHub user authored and reviewed
in a repository, counts them per month and renders the result as an SVG or
HTML histogram, styled with a github-readme-stats color theme.`,
		SilenceUsage: true,
	}

	// Add persistent flags, available to all commands.
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Optional YAML configuration file")

	rootCmd.AddCommand(newGenerateCmd(opts))
	rootCmd.AddCommand(newThemesCmd(opts))
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// logger discards everything unless --verbose is set, then logs to standard error.
func (o *globalOptions) logger(cmd *cobra.Command) *log.Logger {
	logger := log.New(io.Discard, "", log.LstdFlags)
	if o.verbose {
		logger.SetOutput(cmd.ErrOrStderr())
	}
	return logger
}

// loadConfig reads the config file (if any) and the GitHub token.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.LoadToken(); err != nil {
		return nil, err
	}
	return cfg, nil
}
