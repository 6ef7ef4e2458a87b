// Package sqlitestore persists engine state in a local SQLite file.
//
// State is saved replace-all inside one transaction; override change events are
// appended to an audit table that is never rewritten.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dyluth/folio/pkg/canvas"
	"github.com/dyluth/folio/pkg/site"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed state store.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and migrates its schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection keeps the per-connection pragmas in force.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database. Implements io.Closer.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS state_meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS templates (
			id TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			name TEXT NOT NULL,
			inherits_from TEXT NOT NULL,
			sections_json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS overrides (
			template_id TEXT NOT NULL,
			tier TEXT NOT NULL,
			route TEXT NOT NULL,
			items_json TEXT NOT NULL,
			has_content INTEGER NOT NULL,
			modification_count INTEGER NOT NULL,
			last_modified_unixms INTEGER NOT NULL,
			is_exempt INTEGER NOT NULL,
			PRIMARY KEY (template_id, tier, route)
		);`,
		`CREATE TABLE IF NOT EXISTS override_events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			at_unixms INTEGER NOT NULL,
			type TEXT NOT NULL,
			template_id TEXT NOT NULL,
			tier TEXT NOT NULL,
			route TEXT NOT NULL,
			json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_override_events_template ON override_events(template_id, at_unixms);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
	}
	return nil
}

// HasState reports whether a state has ever been saved.
func (s *Store) HasState(ctx context.Context) (bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM state_meta WHERE k = 'version'`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Save replaces the stored state with st and appends changes to the event log,
// all in one transaction.
func (s *Store) Save(ctx context.Context, st *site.State, changes []site.ChangeEvent) error {
	if st == nil {
		return errors.New("state cannot be nil")
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	nowMs := time.Now().UTC().UnixMilli()

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO state_meta(k, v) VALUES(?, ?)`, "version", strconv.Itoa(st.Version)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO state_meta(k, v) VALUES(?, ?)`, "saved_at_unixms", strconv.FormatInt(nowMs, 10)); err != nil {
		return err
	}

	for _, t := range []string{"templates", "overrides"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+t); err != nil {
			return err
		}
	}

	for i := range st.Templates {
		t := &st.Templates[i]
		if err := t.Validate(); err != nil {
			return fmt.Errorf("invalid template: %w", err)
		}
		raw, err := json.Marshal(t.Sections)
		if err != nil {
			return fmt.Errorf("failed to marshal sections of %s: %w", t.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO templates(id, category, name, inherits_from, sections_json, updated_at_unixms) VALUES(?, ?, ?, ?, ?, ?)`,
			t.ID, string(t.Category), t.Name, t.InheritsFrom, string(raw), nowMs); err != nil {
			return err
		}
	}

	for i := range st.Overrides {
		o := &st.Overrides[i]
		if err := o.Validate(); err != nil {
			return fmt.Errorf("invalid override: %w", err)
		}
		raw, err := json.Marshal(o.Items)
		if err != nil {
			return fmt.Errorf("failed to marshal items of %s: %w", o.Key(), err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO overrides(template_id, tier, route, items_json, has_content, modification_count, last_modified_unixms, is_exempt) VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
			o.TemplateID, string(o.Tier), string(o.Route), string(raw), boolToInt(o.HasContent), o.ModificationCount, o.LastModifiedMs, boolToInt(o.IsExempt)); err != nil {
			return err
		}
	}

	for _, ev := range changes {
		if err := appendEvent(ctx, tx, ev); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Load reads the stored state. An empty database yields an empty state at the
// current site.StateVersion.
func (s *Store) Load(ctx context.Context) (*site.State, error) {
	st := &site.State{Version: site.StateVersion, Templates: []site.Template{}, Overrides: []site.Override{}}

	var v string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM state_meta WHERE k = 'version'`).Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, err
	default:
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid stored state version %q: %w", v, err)
		}
		st.Version = n
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, category, name, inherits_from, sections_json FROM templates ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t site.Template
		var category, raw string
		if err := rows.Scan(&t.ID, &category, &t.Name, &t.InheritsFrom, &raw); err != nil {
			return nil, err
		}
		t.Category = site.Category(category)
		if t.Sections, err = decodeItems(raw); err != nil {
			return nil, fmt.Errorf("template %s: %w", t.ID, err)
		}
		st.Templates = append(st.Templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	orows, err := s.db.QueryContext(ctx, `SELECT template_id, tier, route, items_json, has_content, modification_count, last_modified_unixms, is_exempt FROM overrides`)
	if err != nil {
		return nil, err
	}
	defer orows.Close()
	for orows.Next() {
		var o site.Override
		var tier, route, raw string
		var hasContent, isExempt int
		if err := orows.Scan(&o.TemplateID, &tier, &route, &raw, &hasContent, &o.ModificationCount, &o.LastModifiedMs, &isExempt); err != nil {
			return nil, err
		}
		o.Tier = site.Tier(tier)
		o.Route = site.Route(route)
		o.HasContent = hasContent != 0
		o.IsExempt = isExempt != 0
		if o.Items, err = decodeItems(raw); err != nil {
			return nil, fmt.Errorf("override %s: %w", o.Key(), err)
		}
		if o.HasContent && o.Items == nil {
			o.Items = []canvas.Item{}
		}
		st.Overrides = append(st.Overrides, o)
	}
	if err := orows.Err(); err != nil {
		return nil, err
	}

	sortOverrides(st.Overrides)
	return st, nil
}

func decodeItems(raw string) ([]canvas.Item, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var items []canvas.Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal canvas: %w", err)
	}
	return items, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
