package site

// Lookup returns the override record stored under k, if any.
type Lookup func(k RecordKey) (*Override, bool)

// FirstContent walks the tiers applying to r, starting at from and moving outward,
// and returns the first record that carries content. Exemption markers are skipped.
// Returns nil with no error when no tier holds content.
func FirstContent(lookup Lookup, r Route, templateID string, from Tier) (*Override, error) {
	if err := CheckTier(r, from); err != nil {
		return nil, err
	}
	tiers, err := TiersFor(r)
	if err != nil {
		return nil, err
	}
	for _, t := range tiers {
		if t.Rank() < from.Rank() {
			continue
		}
		holder, err := HolderFor(r, t)
		if err != nil {
			return nil, err
		}
		if o, ok := lookup(RecordKey{Route: holder, TemplateID: templateID, Tier: t}); ok && o.HasContent {
			return o, nil
		}
	}
	return nil, nil
}
