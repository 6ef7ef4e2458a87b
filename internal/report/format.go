// Package report renders engine state for the CLI: customization tables, change
// history and resolved canvases, as aligned text or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dyluth/folio/internal/divergence"
	"github.com/dyluth/folio/internal/itemref"
	"github.com/dyluth/folio/internal/resolution"
	"github.com/dyluth/folio/internal/sqlitestore"
	"github.com/dyluth/folio/pkg/canvas"
	"github.com/dyluth/folio/pkg/site"
)

// OutputFormat selects how list output is rendered.
type OutputFormat string

const (
	// OutputFormatDefault is an aligned text table
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL writes one JSON object per line
	OutputFormatJSONL OutputFormat = "jsonl"

	// OutputFormatJSON writes one pretty-printed JSON document
	OutputFormatJSON OutputFormat = "json"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case "", OutputFormatDefault:
		return OutputFormatDefault, nil
	case OutputFormatJSONL, OutputFormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format: %s (must be 'default', 'jsonl' or 'json')", s)
	}
}

// FormatCustomizations writes a template's customizations and its summary as a table.
func FormatCustomizations(w io.Writer, templateID string, cs []divergence.Customization, sum divergence.Summary, now time.Time) {
	fmt.Fprintf(w, "Customizations of '%s': %d customized, %d exempted, %d unmodified of %d known routes\n\n",
		templateID, sum.Customized, sum.Exempted, sum.Unmodified, sum.Total)

	if len(cs) == 0 {
		fmt.Fprintf(w, "No overrides found for template '%s'\n", templateID)
		return
	}

	fmt.Fprintf(w, "%-34s %-10s %-5s %-7s %s\n", "ROUTE", "TIER", "MODS", "EXEMPT", "AGE")
	fmt.Fprintf(w, "%-34s %-10s %-5s %-7s %s\n",
		strings.Repeat("-", 34), strings.Repeat("-", 10), "-----", "-------", "--------")

	for _, c := range cs {
		fmt.Fprintf(w, "%-34s %-10s %-5s %-7s %s\n",
			truncate(string(c.Route), 34),
			c.Tier,
			formatMods(c),
			formatExempt(c.IsExempt),
			formatAge(c.LastModified, now),
		)
	}

	noun := "override"
	if len(cs) != 1 {
		noun = "overrides"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(cs), noun)
}

// FormatHistory writes change log entries as a table, oldest first.
func FormatHistory(w io.Writer, records []sqlitestore.EventRecord, now time.Time) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No changes recorded")
		return
	}

	fmt.Fprintf(w, "%-6s %-9s %-34s %-14s %-10s %-5s %s\n", "SEQ", "CHANGE", "ROUTE", "TEMPLATE", "TIER", "MODS", "AGE")
	fmt.Fprintf(w, "%-6s %-9s %-34s %-14s %-10s %-5s %s\n",
		"------", "---------", strings.Repeat("-", 34), strings.Repeat("-", 14), strings.Repeat("-", 10), "-----", "--------")

	for _, r := range records {
		k := r.Event.Key()
		mods := "-"
		if r.Event.After != nil && r.Event.After.HasContent {
			mods = fmt.Sprintf("%d", r.Event.After.ModificationCount)
		}
		route, tid, tier := string(k.Route), k.TemplateID, string(k.Tier)
		if r.Event.Type == site.ChangeCleared {
			route, tid, tier = "*", "*", "*"
		}
		fmt.Fprintf(w, "%-6d %-9s %-34s %-14s %-10s %-5s %s\n",
			r.Seq, r.Event.Type, truncate(route, 34), truncate(tid, 14), tier, mods,
			formatAge(time.UnixMilli(r.Event.AtMs), now))
	}
}

// FormatResolution writes a resolved canvas as an indented tree with short node ids.
func FormatResolution(w io.Writer, res *resolution.Resolution) {
	fmt.Fprintf(w, "%s @ %s\n", res.TemplateID, res.Route)
	switch res.Source.Kind {
	case resolution.SourceOverride:
		fmt.Fprintf(w, "source: %s override held by %s\n", res.Source.Tier, res.Source.Holder)
	case resolution.SourceBase:
		if res.Source.TemplateID == "" {
			fmt.Fprintln(w, "source: base (empty canvas)")
		} else {
			fmt.Fprintf(w, "source: base template '%s'\n", res.Source.TemplateID)
		}
	}
	fmt.Fprintln(w)

	if len(res.Items) == 0 {
		fmt.Fprintln(w, "(empty)")
		return
	}

	canvas.Walk(res.Items, func(n canvas.Node) bool {
		fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("  ", n.Depth), itemref.Short(n.ID), describe(n))
		return true
	})
}

func describe(n canvas.Node) string {
	switch n.Kind {
	case canvas.NodeSection:
		return strings.TrimSpace(fmt.Sprintf("section %s %s", n.Section.Name, layoutOf(n.Section.Layout)))
	case canvas.NodeArea:
		return strings.TrimSpace("area " + n.Area.Name)
	case canvas.NodeWidget:
		if len(n.Widget.Props) == 0 {
			return string(n.Widget.Kind)
		}
		return fmt.Sprintf("%s %s", n.Widget.Kind, formatProps(n.Widget.Props))
	default:
		return ""
	}
}

func layoutOf(l canvas.Layout) string {
	if l == "" {
		return ""
	}
	return "[" + string(l) + "]"
}

// FormatJSONL writes each element of vs as one compact JSON line.
func FormatJSONL[T any](w io.Writer, vs []T) error {
	enc := json.NewEncoder(w)
	for i := range vs {
		if err := enc.Encode(vs[i]); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatJSON writes v as pretty-printed JSON followed by a newline.
func FormatJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// formatMods shows the modification count, or "-" for an exemption marker.
func formatMods(c divergence.Customization) string {
	if !c.HasContent {
		return "-"
	}
	return fmt.Sprintf("%d", c.ModificationCount)
}

func formatExempt(exempt bool) string {
	if exempt {
		return "yes"
	}
	return "-"
}

// formatProps renders props sorted by key, truncated to 40 characters.
func formatProps(props map[string]string) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+firstLine(props[k]))
	}
	return truncate(strings.Join(parts, " "), 40)
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

// formatAge renders t relative to now: "2m ago", "1h ago", "3d ago".
func formatAge(t time.Time, now time.Time) string {
	if t.IsZero() || t.UnixMilli() == 0 {
		return "-"
	}

	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}
