package site

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrConcurrentSave is returned by SaveState when another writer changed the stored
// state between the read of the indexes and the commit.
var ErrConcurrentSave = errors.New("stored state changed during save")

// Client provides site-scoped Redis persistence for engine state.
// All keys and channels are automatically namespaced with the site name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb      *redis.Client
	siteName string
}

// NewClient creates a new client for the specified site.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - siteName: site identifier used as key namespace (must not be empty)
//
// Returns an error if siteName is empty.
func NewClient(redisOpts *redis.Options, siteName string) (*Client, error) {
	if siteName == "" {
		return nil, fmt.Errorf("site name cannot be empty")
	}

	return &Client{
		rdb:      redis.NewClient(redisOpts),
		siteName: siteName,
	}, nil
}

// SiteName returns the namespace this client writes under.
func (c *Client) SiteName() string {
	return c.siteName
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// HasState reports whether a state has ever been saved for this site.
func (c *Client) HasState(ctx context.Context) (bool, error) {
	n, err := c.rdb.Exists(ctx, MetaKey(c.siteName)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check state existence: %w", err)
	}
	return n > 0, nil
}

// SaveState replaces the stored state with st inside a single MULTI/EXEC transaction.
// Every record is validated before anything is written. The template and override
// indexes are WATCHed, so a concurrent save makes this call fail with
// ErrConcurrentSave instead of interleaving with it.
func (c *Client) SaveState(ctx context.Context, st *State) error {
	if st == nil {
		return fmt.Errorf("state cannot be nil")
	}

	templateHashes := make(map[string]map[string]interface{}, len(st.Templates))
	for i := range st.Templates {
		t := &st.Templates[i]
		if err := t.Validate(); err != nil {
			return fmt.Errorf("invalid template: %w", err)
		}
		hash, err := TemplateToHash(t)
		if err != nil {
			return fmt.Errorf("failed to serialize template: %w", err)
		}
		templateHashes[t.ID] = hash
	}

	overrideHashes := make(map[RecordKey]map[string]interface{}, len(st.Overrides))
	for i := range st.Overrides {
		o := &st.Overrides[i]
		if err := o.Validate(); err != nil {
			return fmt.Errorf("invalid override: %w", err)
		}
		hash, err := OverrideToHash(o)
		if err != nil {
			return fmt.Errorf("failed to serialize override: %w", err)
		}
		overrideHashes[o.Key()] = hash
	}

	templateIndex := TemplateIndexKey(c.siteName)
	overrideIndex := OverrideIndexKey(c.siteName)

	txf := func(tx *redis.Tx) error {
		oldTemplates, err := tx.SMembers(ctx, templateIndex).Result()
		if err != nil {
			return fmt.Errorf("failed to read template index: %w", err)
		}
		oldOverrides, err := tx.SMembers(ctx, overrideIndex).Result()
		if err != nil {
			return fmt.Errorf("failed to read override index: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, id := range oldTemplates {
				pipe.Del(ctx, TemplateKey(c.siteName, id))
			}
			for _, member := range oldOverrides {
				k, err := ParseRecordKey(member)
				if err != nil {
					continue
				}
				pipe.Del(ctx, OverrideKey(c.siteName, k))
			}
			pipe.Del(ctx, templateIndex, overrideIndex)

			for id, hash := range templateHashes {
				pipe.HSet(ctx, TemplateKey(c.siteName, id), hash)
				pipe.SAdd(ctx, templateIndex, id)
			}
			for k, hash := range overrideHashes {
				pipe.HSet(ctx, OverrideKey(c.siteName, k), hash)
				pipe.SAdd(ctx, overrideIndex, k.String())
			}

			pipe.HSet(ctx, MetaKey(c.siteName),
				"version", st.Version,
				"saved_at_ms", time.Now().UnixMilli(),
			)
			return nil
		})
		return err
	}

	err := c.rdb.Watch(ctx, txf, templateIndex, overrideIndex)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConcurrentSave
	}
	if err != nil {
		return fmt.Errorf("failed to write state to Redis: %w", err)
	}

	return nil
}

// LoadState reads the complete stored state. A site with nothing stored yields an
// empty state at the current StateVersion.
// Templates are sorted by id and overrides by record key for stable output.
func (c *Client) LoadState(ctx context.Context) (*State, error) {
	st := &State{Version: StateVersion, Templates: []Template{}, Overrides: []Override{}}

	meta, err := c.rdb.HGetAll(ctx, MetaKey(c.siteName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read state metadata: %w", err)
	}
	if v, err := strconv.Atoi(meta["version"]); err == nil {
		st.Version = v
	}

	templateIDs, err := c.rdb.SMembers(ctx, TemplateIndexKey(c.siteName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read template index: %w", err)
	}
	sort.Strings(templateIDs)
	for _, id := range templateIDs {
		t, err := c.GetTemplate(ctx, id)
		if err != nil {
			return nil, err
		}
		st.Templates = append(st.Templates, *t)
	}

	members, err := c.rdb.SMembers(ctx, OverrideIndexKey(c.siteName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read override index: %w", err)
	}
	sort.Strings(members)
	for _, member := range members {
		k, err := ParseRecordKey(member)
		if err != nil {
			return nil, fmt.Errorf("corrupt override index: %w", err)
		}
		o, err := c.GetOverride(ctx, k)
		if err != nil {
			return nil, err
		}
		st.Overrides = append(st.Overrides, *o)
	}

	return st, nil
}

// GetTemplate retrieves a stored template by id.
// Returns *NotFoundError if the template doesn't exist.
func (c *Client) GetTemplate(ctx context.Context, templateID string) (*Template, error) {
	hashData, err := c.rdb.HGetAll(ctx, TemplateKey(c.siteName, templateID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read template from Redis: %w", err)
	}
	if len(hashData) == 0 {
		return nil, &NotFoundError{Kind: "template", Key: templateID}
	}

	t, err := HashToTemplate(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize template %s: %w", templateID, err)
	}
	return t, nil
}

// GetOverride retrieves a stored override record.
// Returns *NotFoundError if the record doesn't exist.
func (c *Client) GetOverride(ctx context.Context, k RecordKey) (*Override, error) {
	hashData, err := c.rdb.HGetAll(ctx, OverrideKey(c.siteName, k)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read override from Redis: %w", err)
	}
	if len(hashData) == 0 {
		return nil, &NotFoundError{Kind: "override", Key: k.String()}
	}

	o, err := HashToOverride(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize override %s: %w", k, err)
	}
	return o, nil
}

// PublishChange publishes a change event on the site's override_events channel.
func (c *Client) PublishChange(ctx context.Context, ev ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	if err := c.rdb.Publish(ctx, OverrideEventsChannel(c.siteName), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

// Subscription represents an active Pub/Sub subscription to override change events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *ChangeEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of change events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *ChangeEvent {
	return s.events
}

// Errors returns the channel of subscription errors.
// The subscription continues after errors - malformed messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeChanges subscribes to override change events for this site.
// Events are delivered on a buffered channel (size 10). Redis Pub/Sub is
// at-most-once: a slow subscriber may miss events.
func (c *Client) SubscribeChanges(ctx context.Context) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, OverrideEventsChannel(c.siteName))

	// Wait for the subscription to be confirmed so no event published right after
	// this call returns is lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to override events: %w", err)
	}

	eventsChan := make(chan *ChangeEvent, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var ev ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal change event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
