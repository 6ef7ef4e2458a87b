// Package governance implements the state-changing operations of the template
// console: editing, promotion, reset and exemption.
//
// Every mutating operation runs under one service-wide lock and inside a
// snapshot/restore transaction over the registry and the override store, so a
// failure anywhere leaves both exactly as they were.
package governance

import (
	"fmt"
	"sync"

	"github.com/dyluth/folio/internal/divergence"
	"github.com/dyluth/folio/internal/logger"
	"github.com/dyluth/folio/internal/overrides"
	"github.com/dyluth/folio/internal/registry"
	"github.com/dyluth/folio/internal/resolution"
	"github.com/dyluth/folio/pkg/canvas"
	"github.com/dyluth/folio/pkg/site"
)

// Config wires a Service. Registry and Store are required.
type Config struct {
	Registry *registry.Registry
	Store    *overrides.Store

	// Engine defaults to a resolution engine over Registry and Store.
	Engine *resolution.Engine

	// Tracker defaults to a tracker following Store; Close stops it.
	Tracker *divergence.Tracker

	// Logger defaults to logger.Nop().
	Logger *logger.Logger
}

// Service performs governance operations.
type Service struct {
	mu      sync.Mutex
	reg     *registry.Registry
	store   *overrides.Store
	engine  *resolution.Engine
	tracker *divergence.Tracker
	log     *logger.Logger
	stop    func()
}

// NewService validates cfg and fills in its defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("override store is required")
	}
	if cfg.Engine == nil {
		cfg.Engine = resolution.NewEngine(cfg.Registry, cfg.Store)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	stop := func() {}
	if cfg.Tracker == nil {
		cfg.Tracker, stop = divergence.Follow(cfg.Store)
	}

	return &Service{
		reg:     cfg.Registry,
		store:   cfg.Store,
		engine:  cfg.Engine,
		tracker: cfg.Tracker,
		log:     cfg.Logger.With("component", "governance"),
		stop:    stop,
	}, nil
}

// Close stops a tracker the service created for itself.
func (s *Service) Close() {
	s.stop()
}

// Registry returns the template registry.
func (s *Service) Registry() *registry.Registry { return s.reg }

// Store returns the override store.
func (s *Service) Store() *overrides.Store { return s.store }

// Engine returns the resolution engine.
func (s *Service) Engine() *resolution.Engine { return s.engine }

// Tracker returns the divergence tracker.
func (s *Service) Tracker() *divergence.Tracker { return s.tracker }

// Edit stores items as the override of route at the route's own tier.
// The caller normally starts from Resolve's result (copy-on-write).
func (s *Service) Edit(route site.Route, templateID string, items []canvas.Item) (*site.Override, error) {
	tier, err := site.OwnTier(route)
	if err != nil {
		return nil, err
	}
	return s.EditAt(route, templateID, tier, items)
}

// EditAt stores items as the override applying to route at tier. Editing a journal
// tier from an issue route writes the journal's override.
func (s *Service) EditAt(route site.Route, templateID string, tier site.Tier, items []canvas.Item) (*site.Override, error) {
	holder, err := site.HolderFor(route, tier)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out *site.Override
	err = s.transact("edit", func() error {
		o, err := s.store.Set(holder, templateID, tier, items)
		out = o
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("override edited",
		"route", holder, "template_id", templateID, "tier", tier,
		"modification_count", out.ModificationCount)
	return out, nil
}

// EditItem applies mutate to one node of route's effective canvas and stores the
// result at the route's own tier. Returns *site.NotFoundError if no node has itemID.
func (s *Service) EditItem(route site.Route, templateID, itemID string, mutate func(n canvas.Node) error) (*site.Override, error) {
	items, err := s.engine.Resolve(route, templateID)
	if err != nil {
		return nil, err
	}
	node, ok := canvas.Find(items, itemID)
	if !ok {
		return nil, &site.NotFoundError{Kind: "item", Key: itemID}
	}
	if err := mutate(node); err != nil {
		return nil, err
	}
	return s.Edit(route, templateID, items)
}

// Reset removes the override at route's most specific tier holding content and
// returns that tier. Issue and journal routes stop before the global tier; the
// global override is reset through the global route or ResetTier. Resetting a
// route with nothing to clear is a no-op and returns an empty tier. An exemption
// on the record survives the reset.
func (s *Service) Reset(route site.Route, templateID string) (site.Tier, bool, error) {
	tiers, err := site.TiersFor(route)
	if err != nil {
		return "", false, err
	}
	if _, err := s.reg.Get(templateID); err != nil {
		return "", false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tier := range tiers {
		if tier == site.TierGlobal && route != site.GlobalRoute {
			break
		}
		holder, err := site.HolderFor(route, tier)
		if err != nil {
			return "", false, err
		}
		if o, ok := s.store.Get(holder, templateID, tier); ok && o.HasContent {
			cleared, err := s.resetLocked(holder, templateID, tier)
			return tier, cleared, err
		}
	}
	return "", false, nil
}

// ResetTier removes the override applying to route at tier.
func (s *Service) ResetTier(route site.Route, templateID string, tier site.Tier) (bool, error) {
	holder, err := site.HolderFor(route, tier)
	if err != nil {
		return false, err
	}
	if _, err := s.reg.Get(templateID); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked(holder, templateID, tier)
}

func (s *Service) resetLocked(holder site.Route, templateID string, tier site.Tier) (bool, error) {
	var cleared bool
	err := s.transact("reset", func() error {
		c, err := s.store.ClearContent(holder, templateID, tier)
		cleared = c
		return err
	})
	if err != nil {
		return false, err
	}

	if cleared {
		s.log.Info("override reset", "route", holder, "template_id", templateID, "tier", tier)
	}
	return cleared, nil
}

// Exempt flags route so future promotions to a more global tier never change its
// resolved content. A marker record is created when route has no override.
func (s *Service) Exempt(route site.Route, templateID string) error {
	return s.setExempt(route, templateID, true)
}

// Unexempt clears route's exemption flag.
func (s *Service) Unexempt(route site.Route, templateID string) error {
	return s.setExempt(route, templateID, false)
}

func (s *Service) setExempt(route site.Route, templateID string, exempt bool) error {
	tier, err := site.OwnTier(route)
	if err != nil {
		return err
	}
	if tier == site.TierGlobal {
		return &site.InvalidScopeError{Route: route, Tier: tier, Reason: "only journal and issue routes can be exempted"}
	}
	if _, err := s.reg.Get(templateID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.transact("exempt", func() error {
		_, err := s.store.SetExempt(route, templateID, tier, exempt)
		return err
	})
	if err != nil {
		return err
	}

	s.log.Info("exemption changed", "route", route, "template_id", templateID, "tier", tier, "exempt", exempt)
	return nil
}

// SaveAsTemplate registers route's effective canvas as a new template inheriting
// from templateID. Every node id is regenerated.
func (s *Service) SaveAsTemplate(route site.Route, templateID, newID, name string) (*site.Template, error) {
	items, err := s.engine.Resolve(route, templateID)
	if err != nil {
		return nil, err
	}
	parent, err := s.reg.Get(templateID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reg.Has(newID) {
		return nil, fmt.Errorf("template '%s' already exists", newID)
	}

	t := site.Template{
		ID:           newID,
		Category:     parent.Category,
		Name:         name,
		InheritsFrom: templateID,
		Sections:     canvas.CloneWithNewIDs(items),
	}
	if err := s.transact("save-as", func() error { return s.reg.Register(t) }); err != nil {
		return nil, err
	}

	s.log.Info("template saved", "template_id", newID, "from_route", route, "inherits_from", templateID)
	return t.Clone(), nil
}

// transact runs fn and restores the registry and the store if it fails.
// Callers hold s.mu.
func (s *Service) transact(op string, fn func() error) error {
	templates := s.reg.Snapshot()
	records := s.store.Records()
	changes := &overrides.Recorder{}
	unsubscribe := s.store.Subscribe(changes)

	err := fn()
	unsubscribe()
	if err == nil {
		return nil
	}

	if rerr := s.reg.Restore(templates); rerr != nil {
		s.log.Error("registry rollback failed", "op", op, "error", rerr)
	}
	// An untouched store is not restored, so observers see no spurious events.
	if changes.Len() > 0 {
		if rerr := s.store.Restore(records); rerr != nil {
			s.log.Error("override store rollback failed", "op", op, "error", rerr)
		}
	}
	s.log.Warn("operation rolled back", "op", op, "error", err)
	return err
}
