package site

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dyluth/folio/pkg/canvas"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). Canvas trees are JSON-encoded
// into a single hash field; scalar fields stay individually readable so records can
// be inspected with redis-cli.

// OverrideToHash converts an Override to a Redis hash.
// The items tree is JSON-encoded.
func OverrideToHash(o *Override) (map[string]interface{}, error) {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal override items: %w", err)
	}

	hash := map[string]interface{}{
		"route":              string(o.Route),
		"template_id":        o.TemplateID,
		"tier":               string(o.Tier),
		"items":              string(itemsJSON),
		"has_content":        o.HasContent,
		"modification_count": o.ModificationCount,
		"last_modified_ms":   o.LastModifiedMs,
		"is_exempt":          o.IsExempt,
	}

	return hash, nil
}

// HashToOverride converts a Redis hash to an Override.
func HashToOverride(hash map[string]string) (*Override, error) {
	var items []canvas.Item
	if itemsJSON := hash["items"]; itemsJSON != "" && itemsJSON != "null" {
		if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal items: %w", err)
		}
	}

	count, err := strconv.Atoi(hash["modification_count"])
	if err != nil {
		return nil, fmt.Errorf("invalid modification_count field: %w", err)
	}

	lastModifiedMs, _ := strconv.ParseInt(hash["last_modified_ms"], 10, 64)
	hasContent, _ := strconv.ParseBool(hash["has_content"])
	isExempt, _ := strconv.ParseBool(hash["is_exempt"])

	// An empty canvas is content; keep it distinguishable from "no items field".
	if hasContent && items == nil {
		items = []canvas.Item{}
	}

	o := &Override{
		Route:             Route(hash["route"]),
		TemplateID:        hash["template_id"],
		Tier:              Tier(hash["tier"]),
		Items:             items,
		HasContent:        hasContent,
		ModificationCount: count,
		LastModifiedMs:    lastModifiedMs,
		IsExempt:          isExempt,
	}

	return o, nil
}

// TemplateToHash converts a Template to a Redis hash.
// The sections tree is JSON-encoded.
func TemplateToHash(t *Template) (map[string]interface{}, error) {
	sectionsJSON, err := json.Marshal(t.Sections)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal template sections: %w", err)
	}

	hash := map[string]interface{}{
		"id":            t.ID,
		"category":      string(t.Category),
		"name":          t.Name,
		"inherits_from": t.InheritsFrom,
		"sections":      string(sectionsJSON),
	}

	return hash, nil
}

// HashToTemplate converts a Redis hash to a Template.
func HashToTemplate(hash map[string]string) (*Template, error) {
	var sections []canvas.Item
	if sectionsJSON := hash["sections"]; sectionsJSON != "" && sectionsJSON != "null" {
		if err := json.Unmarshal([]byte(sectionsJSON), &sections); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sections: %w", err)
		}
	}

	t := &Template{
		ID:           hash["id"],
		Category:     Category(hash["category"]),
		Name:         hash["name"],
		InheritsFrom: hash["inherits_from"],
		Sections:     sections,
	}

	return t, nil
}
