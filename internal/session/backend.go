package session

import (
	"context"
	"fmt"

	"github.com/dyluth/folio/internal/config"
	"github.com/dyluth/folio/internal/sqlitestore"
	"github.com/dyluth/folio/pkg/site"
	"github.com/redis/go-redis/v9"
)

// Backend persists the engine state between CLI invocations.
type Backend interface {
	// HasState reports whether a state has ever been saved.
	HasState(ctx context.Context) (bool, error)

	// Load returns the stored state; an empty state when nothing was saved.
	Load(ctx context.Context) (*site.State, error)

	// Save replaces the stored state and records the changes that produced it.
	Save(ctx context.Context, st *site.State, changes []site.ChangeEvent) error

	Close() error
}

// EventLog is implemented by backends that keep a queryable change history.
type EventLog interface {
	Events(ctx context.Context, f sqlitestore.EventFilter) ([]sqlitestore.EventRecord, error)
}

// OpenBackend opens the backend selected by cfg.Storage.
func OpenBackend(ctx context.Context, cfg *config.FolioConfig) (Backend, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		s, err := sqlitestore.Open(ctx, cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite state at %s: %w", cfg.Storage.Path, err)
		}
		return s, nil
	case config.DriverRedis:
		opts, err := redis.ParseURL(cfg.Storage.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		client, err := site.NewClient(opts, cfg.Site)
		if err != nil {
			return nil, err
		}
		if err := client.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
		}
		return &RedisBackend{client: client}, nil
	case config.DriverMemory:
		return &MemoryBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}

// RedisBackend stores state in Redis and publishes every saved change on the
// site's override_events channel, where `folio watch` picks it up.
type RedisBackend struct {
	client *site.Client
}

// NewRedisBackend wraps an existing site client.
func NewRedisBackend(client *site.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// Client returns the underlying site client.
func (b *RedisBackend) Client() *site.Client { return b.client }

func (b *RedisBackend) HasState(ctx context.Context) (bool, error) {
	return b.client.HasState(ctx)
}

func (b *RedisBackend) Load(ctx context.Context) (*site.State, error) {
	return b.client.LoadState(ctx)
}

func (b *RedisBackend) Save(ctx context.Context, st *site.State, changes []site.ChangeEvent) error {
	if err := b.client.SaveState(ctx, st); err != nil {
		return err
	}
	for _, ev := range changes {
		if err := b.client.PublishChange(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// MemoryBackend keeps the last saved state in process memory only.
type MemoryBackend struct {
	state   *site.State
	changes []site.ChangeEvent
}

func (b *MemoryBackend) HasState(context.Context) (bool, error) {
	return b.state != nil, nil
}

func (b *MemoryBackend) Load(context.Context) (*site.State, error) {
	if b.state == nil {
		return &site.State{Version: site.StateVersion, Templates: []site.Template{}, Overrides: []site.Override{}}, nil
	}
	return cloneState(b.state), nil
}

func (b *MemoryBackend) Save(_ context.Context, st *site.State, changes []site.ChangeEvent) error {
	if st == nil {
		return fmt.Errorf("state cannot be nil")
	}
	b.state = cloneState(st)
	b.changes = append(b.changes, changes...)
	return nil
}

// Changes returns every change saved so far, in order.
func (b *MemoryBackend) Changes() []site.ChangeEvent {
	return append([]site.ChangeEvent(nil), b.changes...)
}

func (b *MemoryBackend) Close() error { return nil }

func cloneState(st *site.State) *site.State {
	out := &site.State{
		Version:   st.Version,
		Templates: make([]site.Template, 0, len(st.Templates)),
		Overrides: make([]site.Override, 0, len(st.Overrides)),
	}
	for i := range st.Templates {
		out.Templates = append(out.Templates, *st.Templates[i].Clone())
	}
	for i := range st.Overrides {
		out.Overrides = append(out.Overrides, *st.Overrides[i].Clone())
	}
	return out
}
