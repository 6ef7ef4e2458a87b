package site

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by site name so several sites
// can share one Redis server.
//
// Key pattern: folio:{site_name}:{entity}:{id}
// Channel pattern: folio:{site_name}:{event_type}_events

// TemplateKey returns the Redis key for a template hash.
// Pattern: folio:{site_name}:template:{template_id}
func TemplateKey(siteName, templateID string) string {
	return fmt.Sprintf("folio:%s:template:%s", siteName, templateID)
}

// TemplateIndexKey returns the Redis key of the set of stored template ids.
// Pattern: folio:{site_name}:templates
func TemplateIndexKey(siteName string) string {
	return fmt.Sprintf("folio:%s:templates", siteName)
}

// OverrideKey returns the Redis key for an override hash.
// Pattern: folio:{site_name}:override:{template_id}:{tier}:{route}
func OverrideKey(siteName string, k RecordKey) string {
	return fmt.Sprintf("folio:%s:override:%s:%s:%s", siteName, k.TemplateID, k.Tier, k.Route)
}

// OverrideIndexKey returns the Redis key of the set of stored override record keys.
// Members use the RecordKey.String format.
// Pattern: folio:{site_name}:overrides
func OverrideIndexKey(siteName string) string {
	return fmt.Sprintf("folio:%s:overrides", siteName)
}

// MetaKey returns the Redis key of the state metadata hash (version, saved_at_ms).
// Pattern: folio:{site_name}:meta
func MetaKey(siteName string) string {
	return fmt.Sprintf("folio:%s:meta", siteName)
}

// OverrideEventsChannel returns the Pub/Sub channel carrying override change events.
// Pattern: folio:{site_name}:override_events
func OverrideEventsChannel(siteName string) string {
	return fmt.Sprintf("folio:%s:override_events", siteName)
}
