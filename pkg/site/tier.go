package site

import "fmt"

// Tier is a scope level at which an override can exist.
type Tier string

const (
	// TierIndividual holds overrides for a single issue
	TierIndividual Tier = "individual"

	// TierJournal holds overrides shared by every issue of a journal
	TierJournal Tier = "journal"

	// TierGlobal holds website-wide modifications of a template
	TierGlobal Tier = "global"
)

// Validate checks if the Tier is a valid enum value.
func (t Tier) Validate() error {
	switch t {
	case TierIndividual, TierJournal, TierGlobal:
		return nil
	default:
		return fmt.Errorf("unknown tier: %q", t)
	}
}

// Rank orders tiers from most specific (0) to least specific (2).
func (t Tier) Rank() int {
	switch t {
	case TierIndividual:
		return 0
	case TierJournal:
		return 1
	case TierGlobal:
		return 2
	default:
		return -1
	}
}

// Outward returns the next less specific tier. Global has none.
func (t Tier) Outward() (Tier, bool) {
	switch t {
	case TierIndividual:
		return TierJournal, true
	case TierJournal:
		return TierGlobal, true
	default:
		return "", false
	}
}

// TiersFor lists the tiers that apply to a route, most specific first.
func TiersFor(r Route) ([]Tier, error) {
	switch r.Kind() {
	case RouteKindIssue:
		return []Tier{TierIndividual, TierJournal, TierGlobal}, nil
	case RouteKindJournal:
		return []Tier{TierJournal, TierGlobal}, nil
	case RouteKindGlobal:
		return []Tier{TierGlobal}, nil
	default:
		return nil, &InvalidScopeError{Route: r, Reason: "malformed route"}
	}
}

// OwnTier returns the most specific tier of a route: the tier its own edits land in.
func OwnTier(r Route) (Tier, error) {
	tiers, err := TiersFor(r)
	if err != nil {
		return "", err
	}
	return tiers[0], nil
}

// HolderFor returns the route key holding the override that applies to r at tier t.
// Returns *InvalidScopeError when t does not apply to r.
func HolderFor(r Route, t Tier) (Route, error) {
	if err := CheckTier(r, t); err != nil {
		return "", err
	}
	switch t {
	case TierIndividual:
		return r, nil
	case TierJournal:
		return r.Journal(), nil
	default:
		return GlobalRoute, nil
	}
}

// CheckTier returns *InvalidScopeError unless tier t applies to route r.
func CheckTier(r Route, t Tier) error {
	if err := t.Validate(); err != nil {
		return &InvalidScopeError{Route: r, Tier: t, Reason: err.Error()}
	}
	tiers, err := TiersFor(r)
	if err != nil {
		return err
	}
	for _, candidate := range tiers {
		if candidate == t {
			return nil
		}
	}
	return &InvalidScopeError{Route: r, Tier: t, Reason: fmt.Sprintf("%s tier does not apply to %s routes", t, r.Kind())}
}
