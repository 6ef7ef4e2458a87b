// Package site provides the shared vocabulary of the folio template engine and the
// Redis persistence schema built on it.
//
// # Overview
//
// A Route names a content location: an individual issue ("journal/<code>/issue/<id>"),
// a journal ("journal/<code>") or the whole website (GlobalRoute). Routes form a
// strict containment hierarchy that is derived from the string structure alone, so
// every persistence or API layer must preserve the key format exactly.
//
// A Tier is one of the three scope levels at which an Override can exist:
// individual, journal and global. TiersFor lists the tiers that apply to a route,
// most specific first, and HolderFor maps a (route, tier) pair to the route key that
// holds the override for that tier.
//
// Templates carry the base canvas for a content type and may inherit from a parent
// template. Overrides are flat records keyed by (route, templateId, tier); the whole
// engine state is a State value made of templates and overrides, restorable without
// re-deriving anything.
//
// # Redis Schema
//
// All Redis keys are namespaced by site name so several sites can share one server:
//
// Templates: folio:{site}:template:{template_id}
// Template index: folio:{site}:templates
// Overrides: folio:{site}:override:{template_id}:{tier}:{route}
// Override index: folio:{site}:overrides
// State metadata: folio:{site}:meta
//
// Pub/Sub channel: folio:{site}:override_events
//
// # Usage Example
//
//	r, err := site.ParseRoute("journal/embo/issue/42")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	holder, _ := site.HolderFor(r, site.TierJournal) // "journal/embo"
//
//	client, err := site.NewClient(&redis.Options{Addr: "localhost:6379"}, "wiley")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	state, err := client.LoadState(ctx)
package site
