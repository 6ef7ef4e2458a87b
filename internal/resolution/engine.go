// Package resolution computes the effective canvas of a route: the first override
// found walking the tiers from most specific to least specific, else the base
// template's sections, inherited up the ancestry chain when a template has none.
//
// Resolution is a pure function of registry and store state at call time. It never
// caches across writes and never consults exemption flags.
package resolution

import (
	"github.com/dyluth/folio/pkg/canvas"
	"github.com/dyluth/folio/pkg/site"
)

// Templates is the registry view the engine reads.
type Templates interface {
	AncestryChain(id string) ([]site.Template, error)
}

// Overrides is the store view the engine reads. *overrides.Store implements it.
type Overrides interface {
	Lookup(k site.RecordKey) (*site.Override, bool)
}

// SourceKind tells where resolved content came from.
type SourceKind string

const (
	// SourceOverride means a stored override supplied the content
	SourceOverride SourceKind = "override"

	// SourceBase means the content is a base template's sections
	SourceBase SourceKind = "base"
)

// Source describes the origin of a resolved canvas.
type Source struct {
	Kind SourceKind `json:"kind"`

	// Tier and Holder identify the override record; set for SourceOverride.
	Tier   site.Tier  `json:"tier,omitempty"`
	Holder site.Route `json:"holder,omitempty"`

	// TemplateID is the template whose sections were used; set for SourceBase.
	// Empty when no template in the chain has sections (empty canvas).
	TemplateID string `json:"template_id,omitempty"`
}

// Resolution is a resolved canvas and where it came from. Items is a deep copy.
type Resolution struct {
	Route      site.Route    `json:"route"`
	TemplateID string        `json:"template_id"`
	Items      []canvas.Item `json:"items"`
	Source     Source        `json:"source"`
}

// TemplateBase resolves base template canvases through the ancestry chain.
// It implements overrides.Baseline and reads only the registry.
type TemplateBase struct {
	templates Templates
}

// NewTemplateBase creates a TemplateBase over a registry.
func NewTemplateBase(templates Templates) *TemplateBase {
	return &TemplateBase{templates: templates}
}

// BaseSections returns a copy of the first own sections found walking from
// templateID up to its root. A chain without sections yields an empty canvas.
func (b *TemplateBase) BaseSections(templateID string) ([]canvas.Item, error) {
	items, _, err := b.base(templateID)
	return items, err
}

func (b *TemplateBase) base(templateID string) ([]canvas.Item, string, error) {
	chain, err := b.templates.AncestryChain(templateID)
	if err != nil {
		return nil, "", err
	}
	for i := range chain {
		if chain[i].HasSections() {
			return canvas.Clone(chain[i].Sections), chain[i].ID, nil
		}
	}
	return []canvas.Item{}, "", nil
}

// Engine resolves routes against a registry and an override store.
type Engine struct {
	base      *TemplateBase
	overrides Overrides
}

// NewEngine creates an engine reading templates and overrides.
func NewEngine(templates Templates, store Overrides) *Engine {
	return &Engine{base: NewTemplateBase(templates), overrides: store}
}

// Resolve returns the effective canvas of route for templateID.
//
// Errors:
//   - *site.NotFoundError if the template or one of its ancestors is not registered
//   - *site.InvalidScopeError if route is malformed
func (e *Engine) Resolve(route site.Route, templateID string) ([]canvas.Item, error) {
	res, err := e.Explain(route, templateID)
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// Explain resolves like Resolve and also reports which tier or template supplied
// the content.
func (e *Engine) Explain(route site.Route, templateID string) (*Resolution, error) {
	own, err := site.OwnTier(route)
	if err != nil {
		return nil, err
	}
	return e.ResolveFrom(route, templateID, own)
}

// ResolveFrom resolves route ignoring tiers more specific than from.
func (e *Engine) ResolveFrom(route site.Route, templateID string, from site.Tier) (*Resolution, error) {
	if err := site.CheckTier(route, from); err != nil {
		return nil, err
	}

	// A missing base template is a configuration error even when an override
	// would have answered, so check it first.
	baseItems, baseID, err := e.base.base(templateID)
	if err != nil {
		return nil, err
	}

	o, err := site.FirstContent(e.overrides.Lookup, route, templateID, from)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Route: route, TemplateID: templateID}
	if o != nil {
		res.Items = canvas.Clone(o.Items)
		res.Source = Source{Kind: SourceOverride, Tier: o.Tier, Holder: o.Route}
		return res, nil
	}
	res.Items = baseItems
	res.Source = Source{Kind: SourceBase, TemplateID: baseID}
	return res, nil
}

// Outward returns what a record at (route, tier) inherits: the resolution starting
// at the next less specific tier, or the base for the global tier.
func (e *Engine) Outward(route site.Route, templateID string, tier site.Tier) (*Resolution, error) {
	if err := site.CheckTier(route, tier); err != nil {
		return nil, err
	}
	next, ok := tier.Outward()
	if ok {
		return e.ResolveFrom(route, templateID, next)
	}

	items, baseID, err := e.base.base(templateID)
	if err != nil {
		return nil, err
	}
	return &Resolution{
		Route:      route,
		TemplateID: templateID,
		Items:      items,
		Source:     Source{Kind: SourceBase, TemplateID: baseID},
	}, nil
}

// BaseSections returns the template's effective base canvas.
func (e *Engine) BaseSections(templateID string) ([]canvas.Item, error) {
	return e.base.BaseSections(templateID)
}
