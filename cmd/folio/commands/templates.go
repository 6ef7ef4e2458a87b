package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/dyluth/folio/internal/printer"
	"github.com/dyluth/folio/internal/report"
	"github.com/dyluth/folio/internal/session"
	"github.com/dyluth/folio/pkg/canvas"
	"github.com/spf13/cobra"
)

// templateRow is one line of `folio templates`.
type templateRow struct {
	ID           string   `json:"id"`
	Category     string   `json:"category"`
	Name         string   `json:"name,omitempty"`
	InheritsFrom string   `json:"inherits_from,omitempty"`
	Nodes        int      `json:"nodes"`
	Children     []string `json:"children,omitempty"`
	Customized   int      `json:"customized"`
	Exempted     int      `json:"exempted"`
}

func newTemplatesCmd(g *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List registered templates",
		Long: `List every registered template with its parent, the number of canvas nodes
it defines itself, and how many routes customize or are exempt from it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(output)
			if err != nil {
				return printer.Error("invalid output format", err.Error(), nil)
			}

			s, closeFn, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			rows := templateRows(s)
			w := cmd.OutOrStdout()
			switch format {
			case report.OutputFormatJSON:
				return report.FormatJSON(w, rows)
			case report.OutputFormatJSONL:
				return report.FormatJSONL(w, rows)
			default:
				writeTemplateTable(w, rows)
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "default", "Output format: default, json or jsonl")
	return cmd
}

func templateRows(s *session.Session) []templateRow {
	known := len(s.KnownRoutes())
	var rows []templateRow
	for _, t := range s.Registry.List() {
		sum := s.Tracker.Summary(t.ID, known)
		rows = append(rows, templateRow{
			ID:           t.ID,
			Category:     string(t.Category),
			Name:         t.Name,
			InheritsFrom: t.InheritsFrom,
			Nodes:        canvas.Count(t.Sections),
			Children:     s.Registry.Children(t.ID),
			Customized:   sum.Customized,
			Exempted:     sum.Exempted,
		})
	}
	return rows
}

func writeTemplateTable(w io.Writer, rows []templateRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No templates registered")
		return
	}

	fmt.Fprintf(w, "%-16s %-12s %-16s %-6s %-11s %-8s %s\n", "ID", "CATEGORY", "INHERITS", "NODES", "CUSTOMIZED", "EXEMPT", "CHILDREN")
	for _, r := range rows {
		parent := r.InheritsFrom
		if parent == "" {
			parent = "-"
		}
		children := strings.Join(r.Children, ",")
		if children == "" {
			children = "-"
		}
		fmt.Fprintf(w, "%-16s %-12s %-16s %-6d %-11d %-8d %s\n",
			r.ID, r.Category, parent, r.Nodes, r.Customized, r.Exempted, children)
	}
}
