package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/pr-histogram/internal/gateway"
	"github.com/naka-gawa/pr-histogram/internal/theme"
)

func newThemesCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "Lists the available theme names",
		Long:  `Lists the theme names that --theme accepts, reading the local theme cache or fetching and caching the theme index.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := global.logger(cmd)
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			githubGateway, err := gateway.NewGitHubGateway(cfg.Token, cfg.GatewayOptions(), logger)
			if err != nil {
				return fmt.Errorf("failed to create GitHub gateway: %w", err)
			}
			resolver := theme.NewResolver(
				theme.NewFileStore(cfg.ThemeCacheFile, cfg.ThemeCacheTTL, logger),
				githubGateway.ThemeSource(cfg.ThemeFile()),
				logger,
			)
			themes, err := resolver.Themes(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range theme.Names(themes) {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
