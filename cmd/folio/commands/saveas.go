package commands

import (
	"github.com/dyluth/folio/internal/printer"
	"github.com/dyluth/folio/pkg/site"
	"github.com/spf13/cobra"
)

func newSaveAsCmd(g *globalOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "save-as TEMPLATE ROUTE NEW_ID",
		Short: "Register a route's canvas as a new template",
		Long: `Register what ROUTE renders for TEMPLATE as a new template inheriting from
TEMPLATE. Node ids are regenerated so the new template shares none with its source.`,
		Args: cobra.ExactArgs(3),
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

			t, err := s.Governance.SaveAsTemplate(route, args[0], args[2], name)
			if err != nil {
				if site.IsNotFound(err) || site.IsInvalidScope(err) {
					return printer.EngineError("save-as failed", err)
				}
				return printer.Error("save-as failed", err.Error(), nil)
			}
			if err := commit(ctx, s); err != nil {
				return err
			}
			printer.Success("Registered template '%s' (inherits from '%s')\n", t.ID, t.InheritsFrom)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name of the new template")
	return cmd
}
