// Package session loads the persisted engine state into a fully wired set of
// components for one CLI invocation and saves it back afterwards.
package session

import (
	"context"
	"fmt"

	"github.com/dyluth/folio/internal/config"
	"github.com/dyluth/folio/internal/divergence"
	"github.com/dyluth/folio/internal/governance"
	"github.com/dyluth/folio/internal/logger"
	"github.com/dyluth/folio/internal/overrides"
	"github.com/dyluth/folio/internal/registry"
	"github.com/dyluth/folio/internal/resolution"
	"github.com/dyluth/folio/pkg/site"
)

// Session is the live engine over one backend.
type Session struct {
	Config     *config.FolioConfig
	Registry   *registry.Registry
	Store      *overrides.Store
	Engine     *resolution.Engine
	Tracker    *divergence.Tracker
	Governance *governance.Service

	backend     Backend
	recorder    *overrides.Recorder
	unsubscribe func()
	seeded      bool
	log         *logger.Logger
}

// Open loads state from backend. An empty backend is seeded with the templates
// declared in cfg; the seed is persisted by the first Commit.
func Open(ctx context.Context, cfg *config.FolioConfig, backend Backend, log *logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.Nop()
	}

	has, err := backend.HasState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check stored state: %w", err)
	}

	reg := registry.New()
	store := overrides.NewStore(overrides.Options{Baseline: resolution.NewTemplateBase(reg)})

	seeded := false
	if has {
		st, err := backend.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load state: %w", err)
		}
		if st.Version != site.StateVersion {
			return nil, fmt.Errorf("unsupported state version %d (expected %d)", st.Version, site.StateVersion)
		}
		if err := reg.RegisterAll(st.Templates...); err != nil {
			return nil, fmt.Errorf("stored templates are invalid: %w", err)
		}
		if err := store.Restore(st.Overrides); err != nil {
			return nil, fmt.Errorf("stored overrides are invalid: %w", err)
		}
		log.Debug("state loaded", "templates", len(st.Templates), "overrides", len(st.Overrides))
	} else {
		if err := reg.RegisterAll(cfg.Templates...); err != nil {
			return nil, fmt.Errorf("invalid seed templates: %w", err)
		}
		seeded = true
		log.Info("seeding new state from config", "templates", len(cfg.Templates))
	}

	engine := resolution.NewEngine(reg, store)
	tracker, stopTracking := divergence.Follow(store)

	svc, err := governance.NewService(governance.Config{
		Registry: reg,
		Store:    store,
		Engine:   engine,
		Tracker:  tracker,
		Logger:   log,
	})
	if err != nil {
		stopTracking()
		return nil, err
	}

	// Subscribed after loading so restore events are not persisted again.
	rec := &overrides.Recorder{}
	unsub := store.Subscribe(rec)

	return &Session{
		Config:     cfg,
		Registry:   reg,
		Store:      store,
		Engine:     engine,
		Tracker:    tracker,
		Governance: svc,
		backend:    backend,
		recorder:   rec,
		unsubscribe: func() {
			unsub()
			stopTracking()
		},
		seeded: seeded,
		log:    log,
	}, nil
}

// Seeded reports whether this session started from the config seed rather than
// stored state.
func (s *Session) Seeded() bool { return s.seeded }

// Backend returns the session's backend.
func (s *Session) Backend() Backend { return s.backend }

// KnownRoutes lists the journal and issue routes declared in the config.
func (s *Session) KnownRoutes() []site.Route { return s.Config.KnownRoutes() }

// State snapshots the registry and the override store.
func (s *Session) State() *site.State {
	return &site.State{
		Version:   site.StateVersion,
		Templates: s.Registry.List(),
		Overrides: s.Store.Records(),
	}
}

// Commit saves the current state together with every change recorded since the
// previous commit.
func (s *Session) Commit(ctx context.Context) error {
	changes := s.recorder.Drain()
	if err := s.backend.Save(ctx, s.State(), changes); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	s.seeded = false
	s.log.Debug("state saved", "changes", len(changes))
	return nil
}

// Close detaches observers and closes the backend. Uncommitted changes are lost.
func (s *Session) Close() error {
	s.unsubscribe()
	s.Governance.Close()
	return s.backend.Close()
}
