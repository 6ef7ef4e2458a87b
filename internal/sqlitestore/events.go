package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dyluth/folio/pkg/site"
)

// EventRecord is one row of the override event log.
type EventRecord struct {
	Seq   int64            `json:"seq"`
	Event site.ChangeEvent `json:"event"`
}

// EventFilter narrows an event query. Zero values match everything.
type EventFilter struct {
	TemplateID string
	Route      site.Route
	Since      time.Time
	Until      time.Time
	Limit      int
}

func appendEvent(ctx context.Context, tx *sql.Tx, ev site.ChangeEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	k := ev.Key()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO override_events(at_unixms, type, template_id, tier, route, json) VALUES(?, ?, ?, ?, ?, ?)`,
		ev.AtMs, string(ev.Type), k.TemplateID, string(k.Tier), string(k.Route), string(raw))
	return err
}

// Events returns logged change events in log order.
func (s *Store) Events(ctx context.Context, f EventFilter) ([]EventRecord, error) {
	var where []string
	var args []interface{}
	if f.TemplateID != "" {
		where = append(where, "template_id = ?")
		args = append(args, f.TemplateID)
	}
	if f.Route != "" {
		where = append(where, "route = ?")
		args = append(args, string(f.Route))
	}
	if !f.Since.IsZero() {
		where = append(where, "at_unixms >= ?")
		args = append(args, f.Since.UnixMilli())
	}
	if !f.Until.IsZero() {
		where = append(where, "at_unixms <= ?")
		args = append(args, f.Until.UnixMilli())
	}

	q := `SELECT seq, json FROM override_events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY seq"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var rec EventRecord
		var raw string
		if err := rows.Scan(&rec.Seq, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &rec.Event); err != nil {
			return nil, fmt.Errorf("event %d: failed to unmarshal: %w", rec.Seq, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func sortOverrides(records []site.Override) {
	sort.Slice(records, func(i, j int) bool { return records[i].Key().String() < records[j].Key().String() })
}
