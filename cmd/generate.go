package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/pr-histogram/internal/config"
	"github.com/naka-gawa/pr-histogram/internal/domain"
	"github.com/naka-gawa/pr-histogram/internal/gateway"
	"github.com/naka-gawa/pr-histogram/internal/render"
	"github.com/naka-gawa/pr-histogram/internal/theme"
	"github.com/naka-gawa/pr-histogram/internal/usecase"
)

// generateFlags mirrors the config keys that can be set on the command line.
type generateFlags struct {
	targets         string
	outputDir       string
	format          string
	theme           string
	authoredColor   string
	reviewedColor   string
	excludeAuthored bool
}

func newGenerateCmd(global *globalOptions) *cobra.Command {
	flags := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate [username@owner/repo ...]",
		Short: "Renders a monthly histogram of authored and reviewed PRs",
		Long: `Fetches the pull requests each target user authored and reviewed in the
target repository and writes one histogram per target into the output directory.
Targets are given as username@owner/repo, separated by spaces or commas, either
as arguments or with --targets.`,
		Example: `  pr-histogram generate alice@golang/go bob@golang/go
  pr-histogram generate --targets "alice@golang/go,bob@golang/tools" --theme dark --format html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := global.logger(cmd)

			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)
			if len(args) > 0 {
				cfg.Targets = strings.Join(args, " ")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runGenerate(cmd, cfg, logger)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.targets, "targets", "t", "", "Targets in the format 'username@owner/repo', separated by spaces or commas")
	f.StringVarP(&flags.outputDir, "output-dir", "o", ".", "Directory to save the output files")
	f.StringVarP(&flags.format, "format", "f", "svg", "Output format: svg or html")
	f.StringVar(&flags.theme, "theme", theme.DefaultTheme, "Theme name from github-readme-stats")
	f.StringVar(&flags.authoredColor, "authored-color", "", "Hex color for authored PRs, overrides the theme")
	f.StringVar(&flags.reviewedColor, "reviewed-color", "", "Hex color for reviewed PRs, overrides the theme")
	f.BoolVar(&flags.excludeAuthored, "exclude-authored-from-reviewed", false, "Exclude PRs authored by the user from the reviewed count")
	return cmd
}

// apply copies the flags the user actually set over the config values.
func (f *generateFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("targets") {
		cfg.Targets = f.targets
	}
	if changed("output-dir") {
		cfg.OutputDir = f.outputDir
	}
	if changed("format") {
		cfg.Format = f.format
	}
	if changed("theme") {
		cfg.Theme = f.theme
	}
	if changed("authored-color") {
		cfg.AuthoredColor = f.authoredColor
	}
	if changed("reviewed-color") {
		cfg.ReviewedColor = f.reviewedColor
	}
	if changed("exclude-authored-from-reviewed") {
		cfg.ExcludeAuthoredFromReviewed = f.excludeAuthored
	}
}

func runGenerate(cmd *cobra.Command, cfg *config.Config, logger *log.Logger) error {
	ctx := cmd.Context()
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	// Everything that can be rejected without network access is checked first.
	targets, err := domain.ParseTargets(cfg.Targets)
	if err != nil {
		return fmt.Errorf("invalid --targets: %w", err)
	}
	renderer, err := render.ForFormat(cfg.Format)
	if err != nil {
		return err
	}

	// Inject dependencies and run the main business logic.
	githubGateway, err := gateway.NewGitHubGateway(cfg.Token, cfg.GatewayOptions(), logger)
	if err != nil {
		return fmt.Errorf("failed to create GitHub gateway: %w", err)
	}
	resolver := theme.NewResolver(
		theme.NewFileStore(cfg.ThemeCacheFile, cfg.ThemeCacheTTL, logger),
		githubGateway.ThemeSource(cfg.ThemeFile()),
		logger,
	)
	palette, err := resolver.Resolve(ctx, cfg.Theme)
	if err != nil {
		return err
	}
	palette = palette.WithOverrides(cfg.AuthoredColor, cfg.ReviewedColor)

	runner := usecase.NewRunner(
		usecase.NewAggregator(githubGateway, logger),
		render.NewFileWriter(cfg.OutputDir, renderer, logger),
		logger,
	)
	runner.OnResult = func(target domain.Target, path string, err error) {
		if err != nil {
			// err already names the target.
			fmt.Fprintf(errOut, "Error generating histogram: %v\n", err)
			return
		}
		fmt.Fprintf(out, "Contribution histogram for %s saved as: %s\n", target, path)
	}

	report := runner.Run(ctx, targets, palette, cfg.ExcludeAuthoredFromReviewed)
	if len(report.Failures) > 0 {
		return fmt.Errorf("%d of %d targets failed", len(report.Failures), len(targets))
	}
	return nil
}
