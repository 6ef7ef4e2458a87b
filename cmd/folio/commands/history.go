package commands

import (
	"time"

	"github.com/dyluth/folio/internal/printer"
	"github.com/dyluth/folio/internal/report"
	"github.com/dyluth/folio/internal/session"
	"github.com/dyluth/folio/internal/sqlitestore"
	"github.com/dyluth/folio/internal/timespec"
	"github.com/spf13/cobra"
)

type historyOptions struct {
	output string
	route  string
	since  string
	until  string
	limit  int
}

func newHistoryCmd(g *globalOptions) *cobra.Command {
	o := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history [TEMPLATE]",
		Short: "Show the recorded log of override changes",
		Long: `Show every saved override change, oldest first. Requires storage.driver: sqlite,
which keeps the change log alongside the state.

Examples:
  folio history
  folio history toc --since 24h
  folio history toc --route journal/embo -o jsonl`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(o.output)
			if err != nil {
				return printer.Error("invalid output format", err.Error(), nil)
			}
			now := time.Now()
			window, err := timespec.ParseRange(o.since, o.until, now)
			if err != nil {
				return printer.Error("invalid time filter", err.Error(), nil)
			}

			filter := sqlitestore.EventFilter{Since: window.Since, Until: window.Until, Limit: o.limit}
			if len(args) == 1 {
				filter.TemplateID = args[0]
			}
			if o.route != "" {
				if filter.Route, err = parseRoute(o.route); err != nil {
					return err
				}
			}

			s, closeFn, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			log, ok := s.Backend().(session.EventLog)
			if !ok {
				return printer.Error(
					"history requires SQLite storage",
					"Only the sqlite driver keeps a change log.",
					[]string{"Set storage.driver: sqlite in folio.yml"},
				)
			}

			records, err := log.Events(cmd.Context(), filter)
			if err != nil {
				return printer.Error("failed to read history", err.Error(), nil)
			}

			w := cmd.OutOrStdout()
			switch format {
			case report.OutputFormatJSONL:
				return report.FormatJSONL(w, records)
			case report.OutputFormatJSON:
				return report.FormatJSON(w, records)
			default:
				report.FormatHistory(w, records, now)
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&o.output, "output", "o", "default", "Output format: default, json or jsonl")
	cmd.Flags().StringVar(&o.route, "route", "", "Only changes to this holder route")
	cmd.Flags().StringVar(&o.since, "since", "", "Only changes after this time (duration, 7d or RFC3339)")
	cmd.Flags().StringVar(&o.until, "until", "", "Only changes before this time (duration, 7d or RFC3339)")
	cmd.Flags().IntVar(&o.limit, "limit", 0, "Show at most this many changes (0 = all)")
	return cmd
}

