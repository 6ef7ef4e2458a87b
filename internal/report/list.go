package report

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dyluth/folio/internal/divergence"
	"github.com/dyluth/folio/internal/timespec"
	"github.com/dyluth/folio/pkg/site"
)

// FilterCriteria narrows a customization listing. All filters are ANDed together.
type FilterCriteria struct {
	Window     timespec.Range // on LastModified
	RouteGlob  string         // filepath.Match pattern on the holder route, empty = no filter
	Tier       site.Tier      // exact tier, empty = no filter
	OnlyExempt bool
}

func (fc *FilterCriteria) matches(c divergence.Customization) bool {
	if !fc.Window.Contains(c.LastModified) {
		return false
	}

	if fc.RouteGlob != "" {
		matched, err := filepath.Match(fc.RouteGlob, string(c.Route))
		if err != nil || !matched {
			return false
		}
	}

	if fc.Tier != "" && c.Tier != fc.Tier {
		return false
	}

	if fc.OnlyExempt && !c.IsExempt {
		return false
	}

	return true
}

// CustomizationReport is the JSON document form of a listing.
type CustomizationReport struct {
	TemplateID     string                     `json:"template_id"`
	Summary        divergence.Summary         `json:"summary"`
	Customizations []divergence.Customization `json:"customizations"`
}

// ListCustomizations writes the customizations of templateID in format. The
// summary always covers every record; filters only narrow the listed rows.
func ListCustomizations(w io.Writer, tracker *divergence.Tracker, templateID string, knownRoutes int, format OutputFormat, filters *FilterCriteria, now time.Time) error {
	all := tracker.CustomizationsFor(templateID)
	sum := tracker.Summary(templateID, knownRoutes)

	rows := make([]divergence.Customization, 0, len(all))
	for _, c := range all {
		if filters != nil && !filters.matches(c) {
			continue
		}
		rows = append(rows, c)
	}

	switch format {
	case OutputFormatDefault:
		FormatCustomizations(w, templateID, rows, sum, now)
		return nil
	case OutputFormatJSONL:
		return FormatJSONL(w, rows)
	case OutputFormatJSON:
		return FormatJSON(w, CustomizationReport{TemplateID: templateID, Summary: sum, Customizations: rows})
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
