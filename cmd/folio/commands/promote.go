package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/folio/internal/governance"
	"github.com/dyluth/folio/internal/printer"
	"github.com/dyluth/folio/internal/report"
	"github.com/dyluth/folio/pkg/site"
	"github.com/spf13/cobra"
)

type promoteOptions struct {
	from   string
	skip   bool
	force  bool
	output string
}

func newPromoteCmd(g *globalOptions) *cobra.Command {
	o := &promoteOptions{}

	cmd := &cobra.Command{
		Use:   "promote TEMPLATE ROUTE",
		Short: "Move a route's override one tier outward",
		Long: `Promote the override applying to ROUTE one tier outward.

  individual → journal  the issue's canvas becomes the journal's
  journal → global      the journal's canvas becomes the template's base

Promoting to global first lists every other journal with its own
customization. With conflicts and neither --skip nor --force nothing changes
and the conflicts are printed.

  --skip   conflicting journals keep their customization
  --force  conflicting journals lose their customization and follow the new base

Exempt routes are never changed by a promotion, whichever option is given.

Examples:
  folio promote toc journal/embo/issue/2024-1
  folio promote toc journal/embo
  folio promote toc journal/embo --skip`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.skip && o.force {
				return printer.Error("conflicting options", "--skip and --force cannot be combined.", nil)
			}
			format, err := report.ParseFormat(o.output)
			if err != nil {
				return printer.Error("invalid output format", err.Error(), nil)
			}
			route, err := parseRoute(args[1])
			if err != nil {
				return err
			}
			from, err := parseTier(route, o.from)
			if err != nil {
				return err
			}
			to, ok := from.Outward()
			if !ok {
				return printer.Error("nothing to promote to",
					"Global overrides are already the least specific tier.",
					[]string{fmt.Sprintf("Move the template's content into its theme:\n  folio promote-theme %s", args[0])})
			}

			req := governance.PromotionRequest{Route: route, TemplateID: args[0], FromTier: from, ToTier: to}
			switch {
			case o.skip:
				req.Resolution = governance.ResolutionSkip
			case o.force:
				req.Resolution = governance.ResolutionForce
			}

			ctx := cmd.Context()
			s, closeFn, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := s.Governance.Promote(req)
			if err != nil {
				return printer.EngineError("promotion failed", err)
			}

			if result.Applied {
				if err := commit(ctx, s); err != nil {
					return err
				}
			}

			if format != report.OutputFormatDefault {
				if err := report.FormatJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else {
				writePromotion(cmd.OutOrStdout(), req, result)
			}

			if !result.Applied {
				return printer.Error(
					"promotion needs a decision",
					fmt.Sprintf("%d journal(s) customize '%s' and would keep diverging from the promoted content. Nothing was changed.", len(result.Conflicts), req.TemplateID),
					[]string{
						fmt.Sprintf("Keep their customizations:\n  folio promote %s %s --skip", req.TemplateID, route),
						fmt.Sprintf("Discard their customizations:\n  folio promote %s %s --force", req.TemplateID, route),
					},
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&o.from, "from", "", "Tier to promote from (default: the route's own tier)")
	cmd.Flags().BoolVar(&o.skip, "skip", false, "Leave conflicting journals customized")
	cmd.Flags().BoolVar(&o.force, "force", false, "Reset conflicting journals to the promoted content")
	cmd.Flags().StringVarP(&o.output, "output", "o", "default", "Output format: default or json")
	return cmd
}

func writePromotion(w io.Writer, req governance.PromotionRequest, r *governance.PromotionResult) {
	if !r.Applied {
		fmt.Fprintf(w, "Conflicts promoting '%s' from %s to %s:\n\n", req.TemplateID, r.Source.Route, req.ToTier)
		fmt.Fprintf(w, "%-34s %-5s %s\n", "JOURNAL", "MODS", "LAST MODIFIED")
		for _, c := range r.Conflicts {
			fmt.Fprintf(w, "%-34s %-5d %s\n", c.Route, c.ModificationCount, c.LastModified.Format(time.RFC3339))
		}
		if len(r.Exempted) > 0 {
			fmt.Fprintf(w, "\nExempt (never changed): %s\n", joinRoutes(r.Exempted))
		}
		fmt.Fprintln(w)
		return
	}

	printer.Success("Promoted '%s' from %s to %s\n", req.TemplateID, printer.Tier(req.FromTier), printer.Tier(req.ToTier))
	line := func(label string, routes []site.Route) {
		if len(routes) > 0 {
			fmt.Fprintf(w, "  %-12s %s\n", label+":", joinRoutes(routes))
		}
	}
	line("skipped", r.Skipped)
	line("overwritten", r.Overwritten)
	line("exempt", r.Exempted)
	line("shadowed", r.Shadowed)
	if len(r.Pinned) > 0 {
		keys := make([]string, len(r.Pinned))
		for i, k := range r.Pinned {
			keys[i] = k.String()
		}
		fmt.Fprintf(w, "  %-12s %s\n", "pinned:", strings.Join(keys, ", "))
	}
}

func joinRoutes(rs []site.Route) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}

func newPromoteThemeCmd(g *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "promote-theme TEMPLATE",
		Short: "Move a template's global content into the theme it inherits from",
		Long: `Promote a template's effective global content into its parent template.
Every sibling without sections of its own picks the content up; the template
itself inherits it back. Exempt routes keep what they render today.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(output)
			if err != nil {
				return printer.Error("invalid output format", err.Error(), nil)
			}

			ctx := cmd.Context()
			s, closeFn, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := s.Governance.PromoteToTheme(args[0])
			if err != nil {
				return printer.EngineError("theme promotion failed", err)
			}
			if err := commit(ctx, s); err != nil {
				return err
			}

			if format != report.OutputFormatDefault {
				return report.FormatJSON(cmd.OutOrStdout(), result)
			}

			w := cmd.OutOrStdout()
			printer.Success("Promoted '%s' into theme '%s'\n", result.TemplateID, result.ThemeID)
			if len(result.Affected) > 0 {
				fmt.Fprintf(w, "  %-12s %s\n", "affected:", strings.Join(result.Affected, ", "))
			}
			if len(result.Shadowing) > 0 {
				fmt.Fprintf(w, "  %-12s %s\n", "shadowing:", strings.Join(result.Shadowing, ", "))
			}
			for _, k := range result.Pinned {
				fmt.Fprintf(w, "  %-12s %s\n", "pinned:", k)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "default", "Output format: default or json")
	return cmd
}
