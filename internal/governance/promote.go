package governance

import (
	"fmt"
	"sort"
	"time"

	"github.com/dyluth/folio/pkg/canvas"
	"github.com/dyluth/folio/pkg/site"
)

// ConflictResolution is the caller's decision for customized journals a
// journal-to-global promotion would leave diverging.
type ConflictResolution string

const (
	// ResolutionAsk applies nothing when conflicts exist and returns them instead
	ResolutionAsk ConflictResolution = ""

	// ResolutionSkip leaves conflicting journals' overrides untouched
	ResolutionSkip ConflictResolution = "skip"

	// ResolutionForce discards conflicting journals' overrides so they follow the new base
	ResolutionForce ConflictResolution = "force"
)

// Validate checks if the ConflictResolution is a valid enum value.
func (r ConflictResolution) Validate() error {
	switch r {
	case ResolutionAsk, ResolutionSkip, ResolutionForce:
		return nil
	default:
		return fmt.Errorf("unknown conflict resolution %q (expected skip or force)", r)
	}
}

// PromotionRequest moves the override applying to Route at FromTier up to ToTier.
type PromotionRequest struct {
	Route      site.Route
	TemplateID string
	FromTier   site.Tier
	ToTier     site.Tier
	Resolution ConflictResolution
}

// PromotionConflict is a non-exempt journal whose own customization would keep
// diverging from the promoted content.
type PromotionConflict struct {
	Route             site.Route `json:"route"`
	ModificationCount int        `json:"modification_count"`
	LastModified      time.Time  `json:"last_modified"`
}

// PromotionResult reports what a promotion did, or would do when Applied is false.
type PromotionResult struct {
	Applied   bool                `json:"applied"`
	Source    site.RecordKey      `json:"source"`
	Conflicts []PromotionConflict `json:"conflicts,omitempty"`

	Skipped     []site.Route `json:"skipped,omitempty"`     // conflicting journals left untouched
	Overwritten []site.Route `json:"overwritten,omitempty"` // conflicting journals reset by force
	Exempted    []site.Route `json:"exempted,omitempty"`    // exempt journals, always skipped
	Shadowed    []site.Route `json:"shadowed,omitempty"`    // issues keeping their own override over the new journal content

	// Pinned lists exempt records that were given their pre-promotion content so
	// their resolution does not change.
	Pinned []site.RecordKey `json:"pinned,omitempty"`
}

// HasConflicts reports whether caller input is needed.
func (r *PromotionResult) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// Promote moves an override one tier outward.
//
// Supported moves are individual to journal and journal to global. For journal to
// global every conflict is collected before anything is mutated. If conflicts
// exist and req.Resolution is ResolutionAsk, the result lists them with
// Applied=false and no state changes. Exempt routes never change their resolved
// content, whatever the resolution.
//
// Errors:
//   - *site.InvalidScopeError for an unsupported tier pair or a tier that does not apply to Route
//   - *site.NotFoundError if the template or the source override does not exist
func (s *Service) Promote(req PromotionRequest) (*PromotionResult, error) {
	if err := req.Resolution.Validate(); err != nil {
		return nil, err
	}
	holder, err := site.HolderFor(req.Route, req.FromTier)
	if err != nil {
		return nil, err
	}
	if next, ok := req.FromTier.Outward(); !ok || next != req.ToTier {
		return nil, &site.InvalidScopeError{
			Route:  req.Route,
			Tier:   req.ToTier,
			Reason: fmt.Sprintf("cannot promote from %s to %s", req.FromTier, req.ToTier),
		}
	}
	if _, err := s.reg.Get(req.TemplateID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.store.Get(holder, req.TemplateID, req.FromTier)
	if !ok || !src.HasContent {
		return nil, &site.NotFoundError{Kind: "override", Key: site.RecordKey{Route: holder, TemplateID: req.TemplateID, Tier: req.FromTier}.String()}
	}

	switch req.FromTier {
	case site.TierIndividual:
		return s.promoteToJournal(src)
	default:
		return s.promoteToGlobal(src, req.Resolution)
	}
}

func (s *Service) promoteToJournal(src *site.Override) (*PromotionResult, error) {
	journal := src.Route.Journal()
	result := &PromotionResult{Applied: true, Source: src.Key()}

	for _, o := range s.store.RecordsFor(src.TemplateID) {
		if o.Tier == site.TierIndividual && o.HasContent && o.Route != src.Route && journal.Contains(o.Route) {
			result.Shadowed = append(result.Shadowed, o.Route)
		}
	}

	dest := site.RecordKey{Route: journal, TemplateID: src.TemplateID, Tier: site.TierJournal}
	pins, err := s.pinCandidates(src.TemplateID, journal, dest)
	if err != nil {
		return nil, err
	}

	err = s.transact("promote", func() error {
		if _, err := s.store.Set(journal, src.TemplateID, site.TierJournal, src.Items); err != nil {
			return err
		}
		if _, err := s.store.ClearContent(src.Route, src.TemplateID, src.Tier); err != nil {
			return err
		}
		pinned, err := s.applyPins(pins)
		result.Pinned = pinned
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("override promoted",
		"route", src.Route, "template_id", src.TemplateID, "from", site.TierIndividual, "to", site.TierJournal,
		"shadowed", len(result.Shadowed), "pinned", len(result.Pinned))
	return result, nil
}

func (s *Service) promoteToGlobal(src *site.Override, resolution ConflictResolution) (*PromotionResult, error) {
	result := &PromotionResult{Source: src.Key()}

	// Collect conflicts and exemptions before touching anything.
	for _, c := range s.tracker.CustomizationsFor(src.TemplateID) {
		if c.Tier != site.TierJournal || c.Route == src.Route {
			continue
		}
		switch {
		case c.IsExempt:
			result.Exempted = append(result.Exempted, c.Route)
		case c.HasContent:
			result.Conflicts = append(result.Conflicts, PromotionConflict{
				Route:             c.Route,
				ModificationCount: c.ModificationCount,
				LastModified:      c.LastModified,
			})
		}
	}
	sort.Slice(result.Conflicts, func(i, j int) bool { return result.Conflicts[i].Route < result.Conflicts[j].Route })
	sortRoutes(result.Exempted)

	if result.HasConflicts() && resolution == ResolutionAsk {
		s.log.Info("promotion needs a decision",
			"route", src.Route, "template_id", src.TemplateID, "conflicts", len(result.Conflicts))
		return result, nil
	}

	dest := site.RecordKey{Route: site.GlobalRoute, TemplateID: src.TemplateID, Tier: site.TierGlobal}
	pins, err := s.pinCandidates(src.TemplateID, site.GlobalRoute, dest)
	if err != nil {
		return nil, err
	}

	err = s.transact("promote", func() error {
		if err := s.reg.SetSections(src.TemplateID, src.Items); err != nil {
			return err
		}
		// A global-tier override would shadow the new base.
		if _, err := s.store.Remove(site.GlobalRoute, src.TemplateID, site.TierGlobal); err != nil {
			return err
		}
		if err := s.store.Recount(src.TemplateID); err != nil {
			return err
		}
		if _, err := s.store.ClearContent(src.Route, src.TemplateID, site.TierJournal); err != nil {
			return err
		}

		for _, c := range result.Conflicts {
			if resolution != ResolutionForce {
				result.Skipped = append(result.Skipped, c.Route)
				continue
			}
			if _, err := s.store.ClearContent(c.Route, src.TemplateID, site.TierJournal); err != nil {
				return err
			}
			result.Overwritten = append(result.Overwritten, c.Route)
		}

		pinned, err := s.applyPins(pins)
		result.Pinned = pinned
		return err
	})
	if err != nil {
		return nil, err
	}
	result.Applied = true

	s.log.Info("override promoted",
		"route", src.Route, "template_id", src.TemplateID, "from", site.TierJournal, "to", site.TierGlobal,
		"resolution", string(resolution), "skipped", len(result.Skipped), "overwritten", len(result.Overwritten),
		"exempted", len(result.Exempted), "pinned", len(result.Pinned))
	return result, nil
}

// pin is an exempt record without content and the content it resolved to before
// an operation.
type pin struct {
	key    site.RecordKey
	before []canvas.Item
}

// pinCandidates captures the current resolution of every exempt content-less
// record of templateID inside scope. dest is the record the operation writes
// into; an exemption there never blocks content promoted into it.
func (s *Service) pinCandidates(templateID string, scope site.Route, dest site.RecordKey) ([]pin, error) {
	var pins []pin
	for _, o := range s.store.RecordsFor(templateID) {
		if !o.IsExempt || o.HasContent || o.Tier == site.TierGlobal || !scope.Contains(o.Route) || o.Key() == dest {
			continue
		}
		before, err := s.engine.Resolve(o.Route, templateID)
		if err != nil {
			return nil, err
		}
		pins = append(pins, pin{key: o.Key(), before: before})
	}
	return pins, nil
}

// applyPins writes the captured content into every candidate whose resolution
// changed. Outer tiers go first so an issue under a pinned journal sees the pin.
func (s *Service) applyPins(pins []pin) ([]site.RecordKey, error) {
	sort.SliceStable(pins, func(i, j int) bool { return pins[i].key.Tier.Rank() > pins[j].key.Tier.Rank() })

	var pinned []site.RecordKey
	for _, p := range pins {
		after, err := s.engine.Resolve(p.key.Route, p.key.TemplateID)
		if err != nil {
			return pinned, err
		}
		if canvas.Equal(p.before, after) {
			continue
		}
		if _, err := s.store.Set(p.key.Route, p.key.TemplateID, p.key.Tier, p.before); err != nil {
			return pinned, err
		}
		pinned = append(pinned, p.key)
	}
	return pinned, nil
}

func sortRoutes(rs []site.Route) {
	sort.Slice(rs, func(i, j int) bool { return rs[i] < rs[j] })
}
