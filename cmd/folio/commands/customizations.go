package commands

import (
	"time"

	"github.com/dyluth/folio/internal/printer"
	"github.com/dyluth/folio/internal/report"
	"github.com/dyluth/folio/internal/timespec"
	"github.com/dyluth/folio/pkg/site"
	"github.com/spf13/cobra"
)

type customizationsOptions struct {
	output     string
	since      string
	until      string
	route      string
	tier       string
	onlyExempt bool
}

func newCustomizationsCmd(g *globalOptions) *cobra.Command {
	o := &customizationsOptions{}

	cmd := &cobra.Command{
		Use:     "customizations TEMPLATE",
		Aliases: []string{"diverged"},
		Short:   "Show which routes diverge from a template",
		Long: `List every override of a template, most recently modified first, with a
summary of customized, exempted and unmodified routes. Unmodified counts the
journals and issues declared in folio.yml.

Filters narrow the listed rows; the summary always covers every record.

Examples:
  folio customizations toc
  folio customizations toc --tier journal --since 7d
  folio customizations toc --route 'journal/embo*' -o jsonl | jq .modification_count`,
		Args: cobra.ExactArgs(1),
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

			filters := &report.FilterCriteria{Window: window, RouteGlob: o.route, OnlyExempt: o.onlyExempt}
			if o.tier != "" {
				t := site.Tier(o.tier)
				if err := t.Validate(); err != nil {
					return printer.Error("invalid tier", err.Error(), nil)
				}
				filters.Tier = t
			}

			s, closeFn, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			templateID := args[0]
			if !s.Registry.Has(templateID) {
				return printer.EngineError("unknown template", &site.NotFoundError{Kind: "template", Key: templateID})
			}

			return report.ListCustomizations(cmd.OutOrStdout(), s.Tracker, templateID,
				len(s.KnownRoutes()), format, filters, now)
		},
	}

	cmd.Flags().StringVarP(&o.output, "output", "o", "default", "Output format: default, json or jsonl")
	cmd.Flags().StringVar(&o.since, "since", "", "Only overrides modified after this time (duration, 7d or RFC3339)")
	cmd.Flags().StringVar(&o.until, "until", "", "Only overrides modified before this time (duration, 7d or RFC3339)")
	cmd.Flags().StringVar(&o.route, "route", "", "Only holder routes matching this glob")
	cmd.Flags().StringVar(&o.tier, "tier", "", "Only overrides at this tier")
	cmd.Flags().BoolVar(&o.onlyExempt, "exempt", false, "Only exempt routes")
	return cmd
}
