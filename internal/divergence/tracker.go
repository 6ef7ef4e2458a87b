// Package divergence answers, per template, which routes have diverged from the
// content they inherit, which are exempt from future promotions, and how many
// still use the unmodified base.
//
// The Tracker owns no state of its own: it is rebuilt purely from override store
// change events (or from a flat record list), so it can never drift from the store.
package divergence

import (
	"sort"
	"sync"
	"time"

	"github.com/dyluth/folio/internal/overrides"
	"github.com/dyluth/folio/pkg/site"
)

// Customization is the divergence view of one override record.
type Customization struct {
	Route             site.Route `json:"route"`
	TemplateID        string     `json:"template_id"`
	Tier              site.Tier  `json:"tier"`
	ModificationCount int        `json:"modification_count"`
	IsExempt          bool       `json:"is_exempt"`
	HasContent        bool       `json:"has_content"`
	LastModified      time.Time  `json:"last_modified"`
}

// Summary aggregates the divergence of one template across routes.
// Global-tier records are not route customizations and are not counted.
type Summary struct {
	Customized int `json:"customized"` // routes with content and no exemption
	Exempted   int `json:"exempted"`   // routes carrying an exemption, with or without content
	Unmodified int `json:"unmodified"` // known routes minus the two above, never negative
	Total      int `json:"total"`
}

// Tracker maintains the divergence view. It implements overrides.Observer.
type Tracker struct {
	mu        sync.RWMutex
	templates map[string]map[site.RecordKey]Customization
}

var _ overrides.Observer = (*Tracker)(nil)

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{templates: make(map[string]map[site.RecordKey]Customization)}
}

// NewFromRecords builds a tracker from a flat record list, as persisted.
func NewFromRecords(records []site.Override) *Tracker {
	t := New()
	for i := range records {
		t.put(&records[i])
	}
	return t
}

// Follow seeds a tracker from the store's current records and subscribes it to
// later changes. Call the returned function to stop following.
func Follow(store *overrides.Store) (*Tracker, func()) {
	t := NewFromRecords(store.Records())
	return t, store.Subscribe(t)
}

// OverrideChanged applies one store change.
func (t *Tracker) OverrideChanged(ev site.ChangeEvent) {
	switch ev.Type {
	case site.ChangeCleared:
		t.mu.Lock()
		t.templates = make(map[string]map[site.RecordKey]Customization)
		t.mu.Unlock()
	case site.ChangeRemoved:
		if ev.Before != nil {
			t.remove(ev.Before.Key())
		}
	case site.ChangeUpserted, site.ChangeRestored:
		if ev.After != nil {
			t.put(ev.After)
		}
	}
}

func (t *Tracker) put(o *site.Override) {
	t.mu.Lock()
	defer t.mu.Unlock()

	byKey, ok := t.templates[o.TemplateID]
	if !ok {
		byKey = make(map[site.RecordKey]Customization)
		t.templates[o.TemplateID] = byKey
	}
	byKey[o.Key()] = Customization{
		Route:             o.Route,
		TemplateID:        o.TemplateID,
		Tier:              o.Tier,
		ModificationCount: o.ModificationCount,
		IsExempt:          o.IsExempt,
		HasContent:        o.HasContent,
		LastModified:      o.LastModified(),
	}
}

func (t *Tracker) remove(k site.RecordKey) {
	t.mu.Lock()
	defer t.mu.Unlock()

	byKey, ok := t.templates[k.TemplateID]
	if !ok {
		return
	}
	delete(byKey, k)
	if len(byKey) == 0 {
		delete(t.templates, k.TemplateID)
	}
}

// CustomizationsFor lists every record of a template ordered by LastModified
// descending, ties broken by route then tier.
func (t *Tracker) CustomizationsFor(templateID string) []Customization {
	t.mu.RLock()
	out := make([]Customization, 0, len(t.templates[templateID]))
	for _, c := range t.templates[templateID] {
		out = append(out, c)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.LastModified.Equal(b.LastModified) {
			return a.LastModified.After(b.LastModified)
		}
		if a.Route != b.Route {
			return a.Route < b.Route
		}
		return a.Tier.Rank() < b.Tier.Rank()
	})
	return out
}

// Summary aggregates a template's divergence. knownRoutes is the number of routes
// the site serves for the template, as reported by the site's journal registry.
func (t *Tracker) Summary(templateID string, knownRoutes int) Summary {
	customized, exempted := t.classify(templateID)
	s := Summary{
		Customized: len(customized),
		Exempted:   len(exempted),
		Total:      knownRoutes,
	}
	s.Unmodified = knownRoutes - s.Customized - s.Exempted
	if s.Unmodified < 0 {
		s.Unmodified = 0
	}
	return s
}

// CustomizedRoutes returns the non-exempt routes holding content for a template, sorted.
func (t *Tracker) CustomizedRoutes(templateID string) []site.Route {
	customized, _ := t.classify(templateID)
	return sortedRoutes(customized)
}

// ExemptRoutes returns the exempt routes of a template, sorted.
func (t *Tracker) ExemptRoutes(templateID string) []site.Route {
	_, exempted := t.classify(templateID)
	return sortedRoutes(exempted)
}

// Templates returns the ids of templates with at least one record, sorted.
func (t *Tracker) Templates() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, len(t.templates))
	for id := range t.templates {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// classify splits the non-global routes of a template into customized and exempted.
// A route is exempted if any of its records is exempt.
func (t *Tracker) classify(templateID string) (customized, exempted map[site.Route]bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	customized = make(map[site.Route]bool)
	exempted = make(map[site.Route]bool)
	for _, c := range t.templates[templateID] {
		if c.Tier == site.TierGlobal {
			continue
		}
		if c.IsExempt {
			exempted[c.Route] = true
			continue
		}
		if c.HasContent {
			customized[c.Route] = true
		}
	}
	for r := range exempted {
		delete(customized, r)
	}
	return customized, exempted
}

func sortedRoutes(set map[site.Route]bool) []site.Route {
	out := make([]site.Route, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
