package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dyluth/folio/internal/config"
	"github.com/dyluth/folio/internal/logger"
	"github.com/dyluth/folio/internal/printer"
	"github.com/dyluth/folio/internal/session"
	"github.com/dyluth/folio/pkg/site"
	"github.com/spf13/cobra"
)

var versionString = "dev"

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	versionString = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// Execute builds the command tree and runs it against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
}

// NewRootCmd builds the folio command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "folio",
		Short: "folio - template inheritance and divergence governance for journal sites",
		Long: `folio manages the page templates of an academic-publishing site.

Templates inherit from publisher themes. Journals and individual issues may
override a template's canvas; folio resolves what each route renders, tracks
how far routes have diverged, and promotes customizations outward (issue to
journal, journal to global, template to theme) without disturbing routes that
opted out.`,
		Version: versionString,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			printer.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
		// Unknown flags are errors
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
		SilenceErrors:      true,
		SilenceUsage:       true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", config.DefaultFile, "Path to folio.yml")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newInitCmd(),
		newTemplatesCmd(g),
		newResolveCmd(g),
		newEditCmd(g),
		newCustomizationsCmd(g),
		newPromoteCmd(g),
		newPromoteThemeCmd(g),
		newResetCmd(g),
		newExemptCmd(g, true),
		newExemptCmd(g, false),
		newSaveAsCmd(g),
		newWatchCmd(g),
		newHistoryCmd(g),
	)

	return rootCmd
}

// loadConfig reads folio.yml and applies --log-level.
func (g *globalOptions) loadConfig() (*config.FolioConfig, error) {
	if _, err := os.Stat(g.configPath); os.IsNotExist(err) {
		return nil, printer.Error(
			fmt.Sprintf("%s not found", g.configPath),
			"folio needs a configuration file describing the site's journals and templates.",
			[]string{"Create one in this directory:\n  folio init", "Point at an existing file:\n  folio --config path/to/folio.yml ..."},
		)
	}

	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, printer.Error("invalid configuration", err.Error(), nil)
	}

	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
		if err := cfg.Logging.Validate(); err != nil {
			return nil, printer.Error("invalid --log-level", err.Error(), nil)
		}
	}
	return cfg, nil
}

// open loads config and state. Callers defer the returned close function.
func (g *globalOptions) open(ctx context.Context) (*session.Session, func(), error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.Logging.Mode, cfg.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	backend, err := session.OpenBackend(ctx, cfg)
	if err != nil {
		log.Sync()
		return nil, nil, printer.ErrorWithContext(
			"failed to open state",
			err.Error(),
			map[string]string{"Driver": cfg.Storage.Driver, "Site": cfg.Site},
			nil,
		)
	}

	s, err := session.Open(ctx, cfg, backend, log)
	if err != nil {
		_ = backend.Close()
		log.Sync()
		return nil, nil, printer.EngineError("failed to load state", err)
	}

	// Persist the seed at once so node ids stay stable across invocations.
	if s.Seeded() {
		if err := commit(ctx, s); err != nil {
			_ = s.Close()
			log.Sync()
			return nil, nil, err
		}
	}

	closeFn := func() {
		if err := s.Close(); err != nil {
			log.Warn("failed to close state backend", "error", err)
		}
		log.Sync()
	}
	return s, closeFn, nil
}

// commit persists the session and explains lost races.
func commit(ctx context.Context, s *session.Session) error {
	if err := s.Commit(ctx); err != nil {
		if errors.Is(err, site.ErrConcurrentSave) {
			return printer.Error(
				"state changed during save",
				"Another folio command saved the site while this one was running. Nothing was written.",
				[]string{"Re-run the command"},
			)
		}
		return printer.Error("failed to save state", err.Error(), nil)
	}
	return nil
}

// parseRoute normalizes a route argument.
func parseRoute(arg string) (site.Route, error) {
	r, err := site.ParseRoute(arg)
	if err != nil {
		return "", printer.Error("invalid route", err.Error(), []string{
			"Routes look like journal/<code>, journal/<code>/issue/<id> or global",
		})
	}
	return r, nil
}

// parseTier validates a --tier flag; empty means the route's own tier.
func parseTier(route site.Route, flag string) (site.Tier, error) {
	if flag == "" {
		t, err := site.OwnTier(route)
		if err != nil {
			return "", printer.EngineError("invalid route", err)
		}
		return t, nil
	}
	t := site.Tier(flag)
	if err := site.CheckTier(route, t); err != nil {
		return "", printer.EngineError("invalid tier", err)
	}
	return t, nil
}
