// Package overrides stores per-route canvas overrides at the individual, journal
// and global tiers. Each record is keyed by (holder route, template id, tier).
//
// modificationCount is computed at write time as the structural diff between the
// record's canvas and the tree it would otherwise inherit, so reads are O(1).
// Writes that change what a more specific record inherits recount those records.
//
// Every change is pushed to subscribed observers once the store lock is released.
package overrides

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dyluth/folio/pkg/canvas"
	"github.com/dyluth/folio/pkg/site"
)

// Baseline supplies the base template canvas a template resolves to when no tier
// holds an override.
type Baseline interface {
	BaseSections(templateID string) ([]canvas.Item, error)
}

// Options configures a Store. Zero values are replaced by defaults in NewStore.
type Options struct {
	// Clock stamps LastModifiedMs. Default: time.Now.
	Clock func() time.Time

	// Baseline supplies base template canvases for modification counts.
	// Default: every template's base is the empty canvas.
	Baseline Baseline
}

// Store is the override store. Safe for concurrent use; observers are notified
// outside the lock in write order.
type Store struct {
	mu       sync.RWMutex
	records  map[site.RecordKey]*site.Override
	clock    func() time.Time
	baseline Baseline

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObsID int
}

type emptyBaseline struct{}

func (emptyBaseline) BaseSections(string) ([]canvas.Item, error) { return []canvas.Item{}, nil }

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Baseline == nil {
		opts.Baseline = emptyBaseline{}
	}
	return &Store{
		records:   make(map[site.RecordKey]*site.Override),
		clock:     opts.Clock,
		baseline:  opts.Baseline,
		observers: make(map[int]Observer),
	}
}

// Get returns a copy of the record stored at (route, templateID, tier).
// Content-less exemption markers are returned too; check HasContent.
func (s *Store) Get(route site.Route, templateID string, tier site.Tier) (*site.Override, bool) {
	return s.Lookup(site.RecordKey{Route: route, TemplateID: templateID, Tier: tier})
}

// Lookup returns a copy of the record stored under k. Its signature matches site.Lookup.
func (s *Store) Lookup(k site.RecordKey) (*site.Override, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.records[k]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// Set upserts the canvas of a record, keeping its exemption flag.
// The items are cloned; later changes by the caller do not reach the store.
// On error the store is unchanged, and the same holds for Remove and ClearContent.
func (s *Store) Set(route site.Route, templateID string, tier site.Tier, items []canvas.Item) (*site.Override, error) {
	k := site.RecordKey{Route: route, TemplateID: templateID, Tier: tier}
	if err := k.Validate(); err != nil {
		return nil, err
	}
	if err := canvas.Validate(items); err != nil {
		return nil, fmt.Errorf("invalid canvas for %s: %w", k, err)
	}
	if items == nil {
		items = []canvas.Item{}
	}

	s.mu.Lock()
	before := s.records[k]
	next := &site.Override{
		Route:          route,
		TemplateID:     templateID,
		Tier:           tier,
		Items:          canvas.Clone(items),
		HasContent:     true,
		LastModifiedMs: s.clock().UnixMilli(),
	}
	if before != nil {
		next.IsExempt = before.IsExempt
	}
	count, err := s.countLocked(next)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	next.ModificationCount = count
	s.records[k] = next

	recounted, err := s.recountDependentsLocked(k)
	if err != nil {
		s.rollbackLocked(k, before)
		s.mu.Unlock()
		return nil, err
	}
	events := append([]site.ChangeEvent{s.event(site.ChangeUpserted, before, next)}, recounted...)
	out := next.Clone()
	s.mu.Unlock()

	s.notify(events)
	return out, nil
}

// Remove deletes a record, exemption flag included. Removing a missing record is a
// no-op and reports false.
func (s *Store) Remove(route site.Route, templateID string, tier site.Tier) (bool, error) {
	k := site.RecordKey{Route: route, TemplateID: templateID, Tier: tier}
	if err := k.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	before, ok := s.records[k]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	delete(s.records, k)
	var recounted []site.ChangeEvent
	if before.HasContent {
		var err error
		if recounted, err = s.recountDependentsLocked(k); err != nil {
			s.rollbackLocked(k, before)
			s.mu.Unlock()
			return false, err
		}
	}
	events := append([]site.ChangeEvent{s.event(site.ChangeRemoved, before, nil)}, recounted...)
	s.mu.Unlock()

	s.notify(events)
	return true, nil
}

// ClearContent drops the canvas of a record. An exempt record becomes a content-less
// marker so the exemption survives; any other record is deleted. Reports whether
// content was dropped.
func (s *Store) ClearContent(route site.Route, templateID string, tier site.Tier) (bool, error) {
	k := site.RecordKey{Route: route, TemplateID: templateID, Tier: tier}
	if err := k.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	before, ok := s.records[k]
	if !ok || !before.HasContent {
		s.mu.Unlock()
		return false, nil
	}

	var events []site.ChangeEvent
	if before.IsExempt {
		marker := &site.Override{
			Route:          route,
			TemplateID:     templateID,
			Tier:           tier,
			IsExempt:       true,
			LastModifiedMs: s.clock().UnixMilli(),
		}
		s.records[k] = marker
		events = append(events, s.event(site.ChangeUpserted, before, marker))
	} else {
		delete(s.records, k)
		events = append(events, s.event(site.ChangeRemoved, before, nil))
	}
	recounted, err := s.recountDependentsLocked(k)
	if err != nil {
		s.rollbackLocked(k, before)
		s.mu.Unlock()
		return false, err
	}
	events = append(events, recounted...)
	s.mu.Unlock()

	s.notify(events)
	return true, nil
}

// SetExempt sets the exemption flag of a record, independent of its content.
// Exempting a key with no record creates a content-less marker; unexempting a
// marker deletes it. Returns the resulting record, or nil when none remains.
func (s *Store) SetExempt(route site.Route, templateID string, tier site.Tier, exempt bool) (*site.Override, error) {
	k := site.RecordKey{Route: route, TemplateID: templateID, Tier: tier}
	if err := k.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	before, ok := s.records[k]
	switch {
	case ok && before.IsExempt == exempt:
		out := before.Clone()
		s.mu.Unlock()
		return out, nil
	case !ok && !exempt:
		s.mu.Unlock()
		return nil, nil
	}

	var ev site.ChangeEvent
	var out *site.Override
	switch {
	case !ok:
		marker := &site.Override{
			Route:          route,
			TemplateID:     templateID,
			Tier:           tier,
			IsExempt:       true,
			LastModifiedMs: s.clock().UnixMilli(),
		}
		s.records[k] = marker
		ev = s.event(site.ChangeUpserted, nil, marker)
		out = marker.Clone()
	case !exempt && !before.HasContent:
		delete(s.records, k)
		ev = s.event(site.ChangeRemoved, before, nil)
	default:
		next := before.Clone()
		next.IsExempt = exempt
		next.LastModifiedMs = s.clock().UnixMilli()
		s.records[k] = next
		ev = s.event(site.ChangeUpserted, before, next)
		out = next.Clone()
	}
	s.mu.Unlock()

	s.notify([]site.ChangeEvent{ev})
	return out, nil
}

// Recount recomputes the modification count of every record of templateID.
// Call it after the template's base sections change.
func (s *Store) Recount(templateID string) error {
	s.mu.Lock()
	var keys []site.RecordKey
	for k := range s.records {
		if k.TemplateID == templateID {
			keys = append(keys, k)
		}
	}
	events, err := s.recountLocked(keys)
	s.mu.Unlock()

	s.notify(events)
	return err
}

// Records returns copies of every record, sorted by key.
func (s *Store) Records() []site.Override {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(func(site.RecordKey) bool { return true })
}

// RecordsFor returns copies of the records of one template, sorted by key.
func (s *Store) RecordsFor(templateID string) []site.Override {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(func(k site.RecordKey) bool { return k.TemplateID == templateID })
}

// Restore replaces the store content with records exactly as given; counts and
// timestamps are not recomputed. Observers receive ChangeCleared followed by one
// ChangeRestored per record. On a validation error the store is unchanged.
func (s *Store) Restore(records []site.Override) error {
	next := make(map[site.RecordKey]*site.Override, len(records))
	for i := range records {
		o := &records[i]
		if err := o.Validate(); err != nil {
			return err
		}
		if _, dup := next[o.Key()]; dup {
			return fmt.Errorf("duplicate override record %s", o.Key())
		}
		next[o.Key()] = o.Clone()
	}

	s.mu.Lock()
	s.records = next
	events := []site.ChangeEvent{{Type: site.ChangeCleared, AtMs: s.clock().UnixMilli()}}
	for _, o := range s.sortedLocked(func(site.RecordKey) bool { return true }) {
		events = append(events, s.event(site.ChangeRestored, nil, &o))
	}
	s.mu.Unlock()

	s.notify(events)
	return nil
}

// Len returns the number of stored records, exemption markers included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) sortedLocked(keep func(site.RecordKey) bool) []site.Override {
	out := make([]site.Override, 0, len(s.records))
	for k, o := range s.records {
		if keep(k) {
			out = append(out, *o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().String() < out[j].Key().String() })
	return out
}

func (s *Store) lookupLocked(k site.RecordKey) (*site.Override, bool) {
	o, ok := s.records[k]
	return o, ok
}

// countLocked diffs o against the tree it would inherit from the next-outward tier.
func (s *Store) countLocked(o *site.Override) (int, error) {
	if !o.HasContent {
		return 0, nil
	}

	var inherited []canvas.Item
	outer, ok := o.Tier.Outward()
	if ok {
		rec, err := site.FirstContent(s.lookupLocked, o.Route, o.TemplateID, outer)
		if err != nil {
			return 0, err
		}
		if rec != nil {
			inherited = rec.Items
		}
	}
	if inherited == nil {
		base, err := s.baseline.BaseSections(o.TemplateID)
		if err != nil {
			return 0, err
		}
		inherited = base
	}
	return canvas.DiffCount(inherited, o.Items), nil
}

// recountDependentsLocked recounts records that inherit from the record at k:
// same template, more specific tier, holder inside k's route.
func (s *Store) recountDependentsLocked(k site.RecordKey) ([]site.ChangeEvent, error) {
	var keys []site.RecordKey
	for other := range s.records {
		if other.TemplateID == k.TemplateID && other.Tier.Rank() < k.Tier.Rank() && k.Route.Contains(other.Route) {
			keys = append(keys, other)
		}
	}
	return s.recountLocked(keys)
}

func (s *Store) recountLocked(keys []site.RecordKey) ([]site.ChangeEvent, error) {
	// Outer tiers first so the event order reads top-down.
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Tier.Rank() != keys[j].Tier.Rank() {
			return keys[i].Tier.Rank() > keys[j].Tier.Rank()
		}
		return keys[i].String() < keys[j].String()
	})

	// Every count is computed before any record changes, so a failure leaves
	// the store as it was.
	counts := make([]int, len(keys))
	for i, k := range keys {
		count, err := s.countLocked(s.records[k])
		if err != nil {
			return nil, fmt.Errorf("failed to recount %s: %w", k, err)
		}
		counts[i] = count
	}

	var events []site.ChangeEvent
	for i, k := range keys {
		o := s.records[k]
		if counts[i] == o.ModificationCount {
			continue
		}
		next := o.Clone()
		next.ModificationCount = counts[i]
		s.records[k] = next
		events = append(events, s.event(site.ChangeUpserted, o, next))
	}
	return events, nil
}

// rollbackLocked puts back what k held before a write whose recount failed.
func (s *Store) rollbackLocked(k site.RecordKey, before *site.Override) {
	if before == nil {
		delete(s.records, k)
		return
	}
	s.records[k] = before
}

func (s *Store) event(t site.ChangeType, before, after *site.Override) site.ChangeEvent {
	return site.ChangeEvent{Type: t, Before: before.Clone(), After: after.Clone(), AtMs: s.clock().UnixMilli()}
}
