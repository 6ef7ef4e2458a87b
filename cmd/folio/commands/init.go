package commands

import (
	"fmt"

	"github.com/dyluth/folio/internal/scaffold"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var force bool
	var dir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new folio project",
		Long: `Initialize a new folio project with a starter configuration.

Creates:
  • folio.yml - site configuration: storage, journals and seed templates
  • .folio/   - local state directory (ignored by git)

Use --force to reinitialize an existing project (WARNING: discards local state).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := scaffold.Initialize(dir, force); err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			scaffold.PrintSuccess()
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Force reinitialization (removes existing folio.yml and .folio/)")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to initialize")
	return cmd
}
