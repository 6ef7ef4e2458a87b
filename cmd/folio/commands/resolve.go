package commands

import (
	"github.com/dyluth/folio/internal/printer"
	"github.com/dyluth/folio/internal/report"
	"github.com/spf13/cobra"
)

func newResolveCmd(g *globalOptions) *cobra.Command {
	var output, tier string

	cmd := &cobra.Command{
		Use:   "resolve TEMPLATE ROUTE",
		Short: "Show the canvas a route renders for a template",
		Long: `Resolve the effective canvas of a template at a route: the first override found
walking individual → journal → global, else the base template's sections.

--tier starts the walk at a less specific tier, showing what the route would
render if its more specific overrides were removed.

Examples:
  folio resolve toc journal/embo
  folio resolve toc journal/embo/issue/2024-1 --tier journal
  folio resolve toc global -o json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(output)
			if err != nil {
				return printer.Error("invalid output format", err.Error(), nil)
			}
			route, err := parseRoute(args[1])
			if err != nil {
				return err
			}
			from, err := parseTier(route, tier)
			if err != nil {
				return err
			}

			s, closeFn, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := s.Engine.ResolveFrom(route, args[0], from)
			if err != nil {
				return printer.EngineError("resolution failed", err)
			}

			if format == report.OutputFormatDefault {
				report.FormatResolution(cmd.OutOrStdout(), res)
				return nil
			}
			return report.FormatJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "default", "Output format: default or json")
	cmd.Flags().StringVar(&tier, "tier", "", "Start resolution at this tier (individual, journal, global)")
	return cmd
}
