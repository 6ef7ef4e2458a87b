package site

import (
	"fmt"
	"strings"
	"time"

	"github.com/dyluth/folio/pkg/canvas"
)

// StateVersion is the schema version written with every persisted State.
const StateVersion = 1

// Template is a shared base canvas for a content type ("journal home", "toc", ...).
// Templates may inherit from a parent; a template without own sections shows its
// nearest ancestor's sections.
type Template struct {
	ID           string        `json:"id" yaml:"id"`
	Category     Category      `json:"category" yaml:"category"`
	Name         string        `json:"name,omitempty" yaml:"name,omitempty"`
	InheritsFrom string        `json:"inherits_from,omitempty" yaml:"inherits_from,omitempty"`
	Sections     []canvas.Item `json:"sections" yaml:"sections,omitempty"`
}

// Category groups templates by the kind of page they serve.
type Category string

const (
	// CategoryPublication covers journal and issue pages (home, toc, article)
	CategoryPublication Category = "publication"

	// CategoryWebsite covers website-level pages (about, search)
	CategoryWebsite Category = "website"

	// CategoryGlobal covers site-wide furniture (header, footer)
	CategoryGlobal Category = "global"

	// CategoryTheme covers publisher theme templates that others inherit from
	CategoryTheme Category = "theme"
)

// Override is a stored canvas replacing inherited content for a route at one tier.
// Route is the holder route for the tier: the issue route for individual overrides,
// the journal route for journal overrides and GlobalRoute for global overrides.
//
// A record with HasContent=false is an exemption marker: it carries IsExempt only
// and is ignored by resolution.
type Override struct {
	Route             Route         `json:"route"`
	TemplateID        string        `json:"template_id"`
	Tier              Tier          `json:"tier"`
	Items             []canvas.Item `json:"items,omitempty"`
	HasContent        bool          `json:"has_content"`
	ModificationCount int           `json:"modification_count"` // structural diff size against the next-outward tree
	LastModifiedMs    int64         `json:"last_modified_ms"`   // Unix timestamp in milliseconds of the last write
	IsExempt          bool          `json:"is_exempt"`
}

// RecordKey identifies an override record.
type RecordKey struct {
	Route      Route  `json:"route"`
	TemplateID string `json:"template_id"`
	Tier       Tier   `json:"tier"`
}

// State is the complete persisted engine state: registry content plus every
// override record. The divergence view is derived from Overrides alone.
type State struct {
	Version   int        `json:"version"`
	Templates []Template `json:"templates"`
	Overrides []Override `json:"overrides"`
}

// ChangeType describes what happened to an override record.
type ChangeType string

const (
	// ChangeUpserted means a record was created or replaced
	ChangeUpserted ChangeType = "upserted"

	// ChangeRemoved means a record was deleted
	ChangeRemoved ChangeType = "removed"

	// ChangeCleared means the whole store was emptied ahead of a restore
	ChangeCleared ChangeType = "cleared"

	// ChangeRestored means a record was loaded by a restore
	ChangeRestored ChangeType = "restored"
)

// ChangeEvent is emitted for every override store write and published on the
// site's override_events channel by the CLI.
type ChangeEvent struct {
	Type   ChangeType `json:"type"`
	Before *Override  `json:"before,omitempty"`
	After  *Override  `json:"after,omitempty"`
	AtMs   int64      `json:"at_ms"`
}

// Key returns the record key the event is about; empty for ChangeCleared.
func (e ChangeEvent) Key() RecordKey {
	switch {
	case e.After != nil:
		return e.After.Key()
	case e.Before != nil:
		return e.Before.Key()
	default:
		return RecordKey{}
	}
}

// Key returns the record key of the override.
func (o *Override) Key() RecordKey {
	return RecordKey{Route: o.Route, TemplateID: o.TemplateID, Tier: o.Tier}
}

// LastModified returns LastModifiedMs as a time.
func (o *Override) LastModified() time.Time {
	return time.UnixMilli(o.LastModifiedMs)
}

// Clone returns a deep copy of the override.
func (o *Override) Clone() *Override {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = canvas.Clone(o.Items)
	return &c
}

// Clone returns a deep copy of the template.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	c := *t
	c.Sections = canvas.Clone(t.Sections)
	return &c
}

// HasSections reports whether the template defines its own canvas. An empty,
// non-nil canvas counts: the template deliberately renders nothing.
func (t *Template) HasSections() bool {
	return t.Sections != nil
}

// String renders the key as "{template_id}|{tier}|{route}", the member format of
// the Redis override index.
func (k RecordKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.TemplateID, k.Tier, k.Route)
}

// ParseRecordKey parses the output of RecordKey.String.
func ParseRecordKey(s string) (RecordKey, error) {
	parts := strings.SplitN(s, "|", 3)
	if len(parts) != 3 {
		return RecordKey{}, fmt.Errorf("invalid record key %q", s)
	}
	k := RecordKey{TemplateID: parts[0], Tier: Tier(parts[1]), Route: Route(parts[2])}
	if err := k.Validate(); err != nil {
		return RecordKey{}, fmt.Errorf("invalid record key %q: %w", s, err)
	}
	return k, nil
}

// Validate checks that the key names a holder route appropriate for its tier.
func (k RecordKey) Validate() error {
	if k.TemplateID == "" {
		return fmt.Errorf("template id cannot be empty")
	}
	if err := k.Tier.Validate(); err != nil {
		return err
	}
	want := map[Tier]RouteKind{
		TierIndividual: RouteKindIssue,
		TierJournal:    RouteKindJournal,
		TierGlobal:     RouteKindGlobal,
	}[k.Tier]
	if k.Route.Kind() != want {
		return &InvalidScopeError{Route: k.Route, Tier: k.Tier, Reason: fmt.Sprintf("%s overrides are held by %s routes", k.Tier, want)}
	}
	return nil
}

// Validate checks if the Category is a valid enum value.
func (c Category) Validate() error {
	switch c {
	case CategoryPublication, CategoryWebsite, CategoryGlobal, CategoryTheme:
		return nil
	default:
		return fmt.Errorf("unknown category: %q", c)
	}
}

// Validate checks the template's own fields. Inheritance cycles are checked by the registry.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("template id cannot be empty")
	}
	if strings.ContainsAny(t.ID, "|: /") {
		return fmt.Errorf("template id %q cannot contain '|', ':', '/' or spaces", t.ID)
	}
	if err := t.Category.Validate(); err != nil {
		return fmt.Errorf("template '%s': %w", t.ID, err)
	}
	if t.InheritsFrom == t.ID {
		return &CyclicInheritanceError{TemplateID: t.ID, Chain: []string{t.ID, t.ID}}
	}
	if err := canvas.Validate(t.Sections); err != nil {
		return fmt.Errorf("template '%s' sections: %w", t.ID, err)
	}
	return nil
}

// Validate checks if the Override has valid field values.
func (o *Override) Validate() error {
	if err := o.Key().Validate(); err != nil {
		return fmt.Errorf("invalid override key: %w", err)
	}
	if !o.HasContent {
		if len(o.Items) > 0 {
			return fmt.Errorf("override %s: items present on a content-less record", o.Key())
		}
		if !o.IsExempt {
			return fmt.Errorf("override %s: record has neither content nor exemption", o.Key())
		}
		return nil
	}
	if o.ModificationCount < 0 {
		return fmt.Errorf("override %s: modification count must be >= 0, got %d", o.Key(), o.ModificationCount)
	}
	if err := canvas.Validate(o.Items); err != nil {
		return fmt.Errorf("override %s items: %w", o.Key(), err)
	}
	return nil
}
