package governance

import (
	"github.com/dyluth/folio/pkg/canvas"
	"github.com/dyluth/folio/pkg/site"
)

// ThemePromotionResult reports a template-to-theme promotion.
type ThemePromotionResult struct {
	TemplateID string `json:"template_id"`
	ThemeID    string `json:"theme_id"`

	// Affected lists other templates whose base canvas changed with the theme.
	Affected []string `json:"affected,omitempty"`

	// Shadowing lists sibling templates that keep their own sections.
	Shadowing []string `json:"shadowing,omitempty"`

	Pinned []site.RecordKey `json:"pinned,omitempty"`
}

// PromoteToTheme moves a template's effective global content into the template it
// inherits from, so every sibling without own sections picks it up. The template's
// own sections and global-tier override are cleared; it then inherits the same
// content back from its parent.
//
// Returns *site.InvalidScopeError if the template has no parent.
func (s *Service) PromoteToTheme(templateID string) (*ThemePromotionResult, error) {
	t, err := s.reg.Get(templateID)
	if err != nil {
		return nil, err
	}
	if t.InheritsFrom == "" {
		return nil, &site.InvalidScopeError{Route: site.GlobalRoute, Tier: site.TierGlobal, Reason: "template '" + templateID + "' has no parent theme"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := s.engine.Resolve(site.GlobalRoute, templateID)
	if err != nil {
		return nil, err
	}

	result := &ThemePromotionResult{TemplateID: templateID, ThemeID: t.InheritsFrom}
	for _, sibling := range s.reg.Children(t.InheritsFrom) {
		if sibling == templateID {
			continue
		}
		st, err := s.reg.Get(sibling)
		if err != nil {
			return nil, err
		}
		if st.HasSections() {
			result.Shadowing = append(result.Shadowing, sibling)
		}
	}

	before := make(map[string][]canvas.Item)
	var pins []pin
	for _, other := range s.reg.List() {
		if other.ID == templateID {
			continue
		}
		base, err := s.engine.BaseSections(other.ID)
		if err != nil {
			// Templates with a dangling ancestor cannot be affected.
			continue
		}
		before[other.ID] = base
		p, err := s.pinCandidates(other.ID, site.GlobalRoute, site.RecordKey{})
		if err != nil {
			return nil, err
		}
		pins = append(pins, p...)
	}

	err = s.transact("promote-theme", func() error {
		if err := s.reg.SetSections(t.InheritsFrom, content); err != nil {
			return err
		}
		if err := s.reg.SetSections(templateID, nil); err != nil {
			return err
		}
		if _, err := s.store.Remove(site.GlobalRoute, templateID, site.TierGlobal); err != nil {
			return err
		}
		if err := s.store.Recount(templateID); err != nil {
			return err
		}

		for _, other := range s.reg.List() {
			prev, ok := before[other.ID]
			if !ok {
				continue
			}
			after, err := s.engine.BaseSections(other.ID)
			if err != nil {
				return err
			}
			if canvas.Equal(prev, after) {
				continue
			}
			result.Affected = append(result.Affected, other.ID)
			if err := s.store.Recount(other.ID); err != nil {
				return err
			}
		}

		pinned, err := s.applyPins(pins)
		result.Pinned = pinned
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("template promoted to theme",
		"template_id", templateID, "theme_id", t.InheritsFrom,
		"affected", len(result.Affected), "shadowing", len(result.Shadowing), "pinned", len(result.Pinned))
	return result, nil
}
