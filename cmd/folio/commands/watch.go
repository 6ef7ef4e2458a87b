package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/folio/internal/config"
	"github.com/dyluth/folio/internal/printer"
	"github.com/dyluth/folio/internal/watch"
	"github.com/dyluth/folio/pkg/site"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newWatchCmd(g *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream override changes as other folio commands save them",
		Long: `Stream override changes published on the site's Redis channel until
interrupted. Requires storage.driver: redis.

Output Formats:
  default - One human-readable line per change
  json    - Line-delimited JSON for programmatic processing`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var format watch.OutputFormat
			switch output {
			case "default":
				format = watch.OutputFormatDefault
			case "json":
				format = watch.OutputFormatJSON
			default:
				return printer.Error("invalid output format", fmt.Sprintf("Unknown format: %s", output), []string{"Valid formats: default, json"})
			}

			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != config.DriverRedis {
				return printer.Error(
					"watch requires Redis storage",
					fmt.Sprintf("storage.driver is '%s'; changes are only published with the redis driver.", cfg.Storage.Driver),
					[]string{"Set storage.driver: redis in folio.yml"},
				)
			}

			opts, err := redis.ParseURL(cfg.Storage.RedisURL)
			if err != nil {
				return printer.Error("invalid redis URL", err.Error(), nil)
			}
			client, err := site.NewClient(opts, cfg.Site)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := client.Ping(ctx); err != nil {
				return printer.ErrorWithContext("Redis connection failed",
					fmt.Sprintf("Could not connect to Redis at %s", opts.Addr),
					map[string]string{"Site": cfg.Site}, nil)
			}

			if format == watch.OutputFormatDefault {
				printer.Info("Watching override changes for site '%s' (Ctrl+C to stop)\n", cfg.Site)
			}
			return streamUntilDone(ctx, client, format, cmd)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "default", "Output format (default or json)")
	return cmd
}

func streamUntilDone(ctx context.Context, client *site.Client, format watch.OutputFormat, cmd *cobra.Command) error {
	if err := watch.StreamChanges(ctx, client, format, cmd.OutOrStdout()); err != nil {
		return printer.Error("watch failed", err.Error(), nil)
	}
	return nil
}
