package commands

import (
	"github.com/dyluth/folio/internal/printer"
	"github.com/dyluth/folio/pkg/site"
	"github.com/spf13/cobra"
)

func newResetCmd(g *globalOptions) *cobra.Command {
	var tier string

	cmd := &cobra.Command{
		Use:   "reset TEMPLATE ROUTE",
		Short: "Remove a route's override so it inherits again",
		Long: `Remove the most specific override applying to ROUTE (or the one at --tier).
Issue and journal routes never reset the global override unless --tier global is
given. The route then renders whatever the next tier outward provides. An
exemption on the route survives the reset; use 'folio unexempt' to lift it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			route, err := parseRoute(args[1])
			if err != nil {
				return err
			}
			var t site.Tier
			if tier != "" {
				if t, err = parseTier(route, tier); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			s, closeFn, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			var cleared bool
			if t == "" {
				t, cleared, err = s.Governance.Reset(route, args[0])
			} else {
				cleared, err = s.Governance.ResetTier(route, args[0], t)
			}
			if err != nil {
				return printer.EngineError("reset failed", err)
			}
			if !cleared {
				if t == "" {
					printer.Info("No override of '%s' applies to %s; nothing to reset\n", args[0], route)
				} else {
					printer.Info("No %s override of '%s' at %s; nothing to reset\n", t, args[0], route)
				}
				return nil
			}
			if err := commit(ctx, s); err != nil {
				return err
			}
			holder, _ := site.HolderFor(route, t)
			printer.Success("Reset %s override of '%s' at %s\n", printer.Tier(t), args[0], holder)
			return nil
		},
	}

	cmd.Flags().StringVar(&tier, "tier", "", "Tier to reset (default: the most specific tier with an override)")
	return cmd
}

// newExemptCmd builds `exempt` or, with exempt=false, `unexempt`.
func newExemptCmd(g *globalOptions, exempt bool) *cobra.Command {
	use, short, long := "exempt", "Protect a route from future promotions",
		`Flag a journal or issue route so promotions to a more global tier never change
what it renders. The route keeps rendering its current content even if it has
no override of its own.`
	if !exempt {
		use, short, long = "unexempt", "Lift a route's exemption", `Clear a route's exemption. Future promotions may change what it renders again.`
	}

	return &cobra.Command{
		Use:   use + " TEMPLATE ROUTE",
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			route, err := parseRoute(args[1])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, closeFn, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if exempt {
				err = s.Governance.Exempt(route, args[0])
			} else {
				err = s.Governance.Unexempt(route, args[0])
			}
			if err != nil {
				return printer.EngineError(use+" failed", err)
			}
			if err := commit(ctx, s); err != nil {
				return err
			}

			if exempt {
				printer.Success("%s is exempt from promotions of '%s'\n", route, args[0])
			} else {
				printer.Success("%s follows promotions of '%s' again\n", route, args[0])
			}
			return nil
		},
	}
}
