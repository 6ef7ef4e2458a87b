package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dyluth/folio/internal/divergence"
	"github.com/dyluth/folio/internal/resolution"
	"github.com/dyluth/folio/internal/sqlitestore"
	"github.com/dyluth/folio/internal/timespec"
	"github.com/dyluth/folio/pkg/canvas"
	"github.com/dyluth/folio/pkg/site"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 10, 29, 12, 0, 0, 0, time.UTC)

func ago(d time.Duration) int64 { return now.Add(-d).UnixMilli() }

func fixtureTracker() *divergence.Tracker {
	items := []canvas.Item{canvas.WidgetItem(canvas.Widget{ID: "w1", Kind: canvas.WidgetDivider})}
	return divergence.NewFromRecords([]site.Override{
		{Route: "journal/embo", TemplateID: "toc", Tier: site.TierJournal, Items: items, HasContent: true, ModificationCount: 3, LastModifiedMs: ago(2 * time.Hour)},
		{Route: "journal/advma", TemplateID: "toc", Tier: site.TierJournal, Items: items, HasContent: true, ModificationCount: 1, LastModifiedMs: ago(5 * time.Minute)},
		{Route: "journal/physics", TemplateID: "toc", Tier: site.TierJournal, IsExempt: true, LastModifiedMs: ago(3 * 24 * time.Hour)},
		{Route: site.GlobalRoute, TemplateID: "toc", Tier: site.TierGlobal, Items: items, HasContent: true, ModificationCount: 2, LastModifiedMs: ago(time.Minute)},
	})
}

func TestListCustomizations_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ListCustomizations(&buf, fixtureTracker(), "toc", 5, OutputFormatDefault, nil, now))

	out := buf.String()
	assert.Contains(t, out, "2 customized, 1 exempted, 2 unmodified of 5 known routes")
	assert.Contains(t, out, "4 overrides found")
	assert.Contains(t, out, "5m ago")
	assert.Contains(t, out, "3d ago")

	lines := strings.Split(out, "\n")
	var physics string
	for _, l := range lines {
		if strings.HasPrefix(l, "journal/physics") {
			physics = l
		}
	}
	require.NotEmpty(t, physics)
	assert.Regexp(t, `journal\s+-\s+yes`, physics, "markers show no modification count")
}

func TestListCustomizations_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ListCustomizations(&buf, divergence.New(), "toc", 0, OutputFormatDefault, nil, now))
	assert.Contains(t, buf.String(), "No overrides found for template 'toc'")
}

func TestListCustomizations_Filters(t *testing.T) {
	testCases := []struct {
		name   string
		filter FilterCriteria
		want   []site.Route
	}{
		{"tier", FilterCriteria{Tier: site.TierGlobal}, []site.Route{site.GlobalRoute}},
		{"route glob", FilterCriteria{RouteGlob: "journal/a*"}, []site.Route{"journal/advma"}},
		{"exempt only", FilterCriteria{OnlyExempt: true}, []site.Route{"journal/physics"}},
		{"window", FilterCriteria{Window: timespec.Range{Since: now.Add(-time.Hour)}}, []site.Route{site.GlobalRoute, "journal/advma"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			filter := tc.filter
			require.NoError(t, ListCustomizations(&buf, fixtureTracker(), "toc", 5, OutputFormatJSONL, &filter, now))

			var got []site.Route
			for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
				if line == "" {
					continue
				}
				var c divergence.Customization
				require.NoError(t, json.Unmarshal([]byte(line), &c))
				got = append(got, c.Route)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestListCustomizations_JSONKeepsFullSummary(t *testing.T) {
	var buf bytes.Buffer
	filter := &FilterCriteria{Tier: site.TierGlobal}
	require.NoError(t, ListCustomizations(&buf, fixtureTracker(), "toc", 5, OutputFormatJSON, filter, now))

	var rep CustomizationReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rep))
	assert.Equal(t, "toc", rep.TemplateID)
	assert.Equal(t, 2, rep.Summary.Customized)
	assert.Len(t, rep.Customizations, 1)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatDefault, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestFormatHistory(t *testing.T) {
	var buf bytes.Buffer
	FormatHistory(&buf, nil, now)
	assert.Contains(t, buf.String(), "No changes recorded")

	buf.Reset()
	after := &site.Override{Route: "journal/embo", TemplateID: "toc", Tier: site.TierJournal, HasContent: true, ModificationCount: 4}
	FormatHistory(&buf, []sqlitestore.EventRecord{
		{Seq: 1, Event: site.ChangeEvent{Type: site.ChangeUpserted, After: after, AtMs: ago(time.Hour)}},
		{Seq: 2, Event: site.ChangeEvent{Type: site.ChangeCleared, AtMs: ago(time.Minute)}},
	}, now)
	out := buf.String()
	assert.Regexp(t, `1\s+upserted\s+journal/embo\s+toc\s+journal\s+4\s+1h ago`, out)
	assert.Regexp(t, `2\s+cleared\s+\*`, out)
}

func TestFormatResolution(t *testing.T) {
	res := &resolution.Resolution{
		Route:      "journal/embo",
		TemplateID: "toc",
		Source:     resolution.Source{Kind: resolution.SourceOverride, Tier: site.TierJournal, Holder: "journal/embo"},
		Items: []canvas.Item{{Section: &canvas.Section{
			ID: "section-0001", Name: "Header", Layout: canvas.LayoutOneColumn,
			Areas: []canvas.Area{{ID: "area-0001", Name: "main", Widgets: []canvas.Widget{
				{ID: "widget-0001", Kind: canvas.WidgetBanner, Props: map[string]string{"color": "blue", "alt": "x"}},
			}}},
		}}},
	}

	var buf bytes.Buffer
	FormatResolution(&buf, res)
	out := buf.String()
	assert.Contains(t, out, "source: journal override held by journal/embo")
	assert.Contains(t, out, "section- section Header [one-column]")
	assert.Contains(t, out, "    widget-0 banner alt=x color=blue")

	buf.Reset()
	FormatResolution(&buf, &resolution.Resolution{Route: "journal/embo", TemplateID: "toc", Source: resolution.Source{Kind: resolution.SourceBase}})
	assert.Contains(t, buf.String(), "source: base (empty canvas)")
	assert.Contains(t, buf.String(), "(empty)")
}
