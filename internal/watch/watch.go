// Package watch streams override changes published on a site's Redis channel.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/folio/pkg/site"
)

// OutputFormat selects how streamed events are written.
type OutputFormat string

const (
	// OutputFormatDefault writes one human-readable line per event
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON writes one JSON object per line
	OutputFormatJSON OutputFormat = "json"
)

// StreamChanges writes every change published for client's site until ctx is
// cancelled. Cancellation is not an error.
func StreamChanges(ctx context.Context, client *site.Client, format OutputFormat, w io.Writer) error {
	sub, err := client.SubscribeChanges(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-sub.Errors():
			if !ok {
				return nil
			}
			fmt.Fprintf(w, "⚠️  %v\n", err)
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if format == OutputFormatJSON {
				if err := enc.Encode(ev); err != nil {
					return fmt.Errorf("failed to write event: %w", err)
				}
				continue
			}
			fmt.Fprintln(w, FormatEvent(ev))
		}
	}
}

// FormatEvent renders ev as a single line prefixed with its time.
func FormatEvent(ev *site.ChangeEvent) string {
	ts := time.UnixMilli(ev.AtMs).Format("15:04:05")
	k := ev.Key()

	switch ev.Type {
	case site.ChangeCleared:
		return fmt.Sprintf("[%s] 🧹 State cleared", ts)
	case site.ChangeRestored:
		return fmt.Sprintf("[%s] ♻️  Restored: %s", ts, k)
	case site.ChangeRemoved:
		return fmt.Sprintf("[%s] 🗑️  Override removed: template=%s, route=%s, tier=%s", ts, k.TemplateID, k.Route, k.Tier)
	case site.ChangeUpserted:
		after := ev.After
		switch {
		case !after.HasContent && after.IsExempt:
			return fmt.Sprintf("[%s] 🛡️  Exempted: template=%s, route=%s", ts, k.TemplateID, k.Route)
		default:
			suffix := ""
			if after.IsExempt {
				suffix = ", exempt"
			}
			return fmt.Sprintf("[%s] ✏️  Override saved: template=%s, route=%s, tier=%s, mods=%d%s", ts, k.TemplateID, k.Route, k.Tier, after.ModificationCount, suffix)
		}
	default:
		return fmt.Sprintf("[%s] %s: %s", ts, ev.Type, k)
	}
}
