// Package registry holds the base templates of a site and their inheritsFrom
// hierarchy. Every write is validated against the would-be registry before it is
// applied, so a rejected registration never leaves partial state behind.
package registry

import (
	"sort"
	"sync"

	"github.com/dyluth/folio/pkg/canvas"
	"github.com/dyluth/folio/pkg/site"
)

// Registry is an in-memory template registry. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*site.Template
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{templates: make(map[string]*site.Template)}
}

// Register validates t and inserts or replaces it.
// Returns *site.CyclicInheritanceError if t's inheritsFrom chain revisits a template.
// A parent that is not registered yet is allowed; resolution reports it later.
func (r *Registry) Register(t site.Template) error {
	return r.RegisterAll(t)
}

// RegisterAll validates the whole batch against the registry as it would look after
// the batch, then inserts all of it or none of it.
func (r *Registry) RegisterAll(ts ...site.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make(map[string]*site.Template, len(ts))
	for i := range ts {
		if err := ts[i].Validate(); err != nil {
			return err
		}
		pending[ts[i].ID] = ts[i].Clone()
	}

	lookup := func(id string) (*site.Template, bool) {
		if t, ok := pending[id]; ok {
			return t, true
		}
		t, ok := r.templates[id]
		return t, ok
	}

	for id := range pending {
		if err := checkCycle(id, lookup); err != nil {
			return err
		}
	}

	for id, t := range pending {
		r.templates[id] = t
	}
	return nil
}

// checkCycle walks inheritsFrom from id and fails on the first revisit.
// The walk stops quietly at a missing parent.
func checkCycle(id string, lookup func(string) (*site.Template, bool)) error {
	seen := map[string]bool{id: true}
	chain := []string{id}
	cur := id
	for {
		t, ok := lookup(cur)
		if !ok || t.InheritsFrom == "" {
			return nil
		}
		next := t.InheritsFrom
		chain = append(chain, next)
		if seen[next] {
			return &site.CyclicInheritanceError{TemplateID: id, Chain: chain}
		}
		seen[next] = true
		cur = next
	}
}

// Get returns a copy of the template or *site.NotFoundError.
func (r *Registry) Get(id string) (*site.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.templates[id]
	if !ok {
		return nil, &site.NotFoundError{Kind: "template", Key: id}
	}
	return t.Clone(), nil
}

// Has reports whether a template is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.templates[id]
	return ok
}

// AncestryChain returns copies of the template and its ancestors, ordered from the
// template itself up to its root. A missing template or ancestor is a
// *site.NotFoundError.
func (r *Registry) AncestryChain(id string) ([]site.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var chain []site.Template
	seen := make(map[string]bool)
	cur := id
	for cur != "" {
		t, ok := r.templates[cur]
		if !ok {
			return nil, &site.NotFoundError{Kind: "template", Key: cur}
		}
		// Registration rejects cycles; this only guards against a hand-edited state file.
		if seen[cur] {
			ids := make([]string, 0, len(chain)+1)
			for _, c := range chain {
				ids = append(ids, c.ID)
			}
			return nil, &site.CyclicInheritanceError{TemplateID: id, Chain: append(ids, cur)}
		}
		seen[cur] = true
		chain = append(chain, *t.Clone())
		cur = t.InheritsFrom
	}
	return chain, nil
}

// Children returns the ids of templates that inherit directly from id, sorted.
func (r *Registry) Children(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for tid, t := range r.templates {
		if t.InheritsFrom == id {
			out = append(out, tid)
		}
	}
	sort.Strings(out)
	return out
}

// List returns copies of every template sorted by id.
func (r *Registry) List() []site.Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]site.Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, *t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetSections replaces a template's own sections. Passing nil clears them so the
// template shows its parent's sections again; an empty slice is an own, empty canvas.
func (r *Registry) SetSections(id string, items []canvas.Item) error {
	if err := canvas.Validate(items); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.templates[id]
	if !ok {
		return &site.NotFoundError{Kind: "template", Key: id}
	}
	t.Sections = canvas.Clone(items)
	return nil
}

// Snapshot returns a deep copy of the registry content, sorted by id.
func (r *Registry) Snapshot() []site.Template {
	return r.List()
}

// Restore replaces the registry content with ts. The batch is checked for cycles
// as a whole; on error the registry is unchanged.
func (r *Registry) Restore(ts []site.Template) error {
	next := make(map[string]*site.Template, len(ts))
	for i := range ts {
		if err := ts[i].Validate(); err != nil {
			return err
		}
		next[ts[i].ID] = ts[i].Clone()
	}
	lookup := func(id string) (*site.Template, bool) {
		t, ok := next[id]
		return t, ok
	}
	for id := range next {
		if err := checkCycle(id, lookup); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.templates = next
	r.mu.Unlock()
	return nil
}

// Len returns the number of registered templates.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.templates)
}
