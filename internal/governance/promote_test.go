package governance

import (
	"fmt"
	"testing"

	"github.com/dyluth/folio/pkg/canvas"
	"github.com/dyluth/folio/pkg/site"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toGlobal(route site.Route, resolution ConflictResolution) PromotionRequest {
	return PromotionRequest{Route: route, TemplateID: "toc", FromTier: site.TierJournal, ToTier: site.TierGlobal, Resolution: resolution}
}

// The toc / embo / advma / physics walkthrough.
func TestPromote_TocScenario(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.Registry().SetSections("toc", []canvas.Item{banner("black")}))
	_, err := f.svc.Edit(embo, "toc", []canvas.Item{banner("orange")})
	require.NoError(t, err)
	_, err = f.svc.Edit(advma, "toc", []canvas.Item{banner("red")})
	require.NoError(t, err)

	result, err := f.svc.Promote(toGlobal(advma, ResolutionAsk))
	require.NoError(t, err)
	assert.False(t, result.Applied)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, embo, result.Conflicts[0].Route)
	assert.Equal(t, "black", f.resolveColor(t, physics, "toc"), "asking mutates nothing")

	result, err = f.svc.Promote(toGlobal(advma, ResolutionSkip))
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, []site.Route{embo}, result.Skipped)

	base, err := f.svc.Registry().Get("toc")
	require.NoError(t, err)
	assert.Equal(t, "red", colorOf(t, base.Sections))

	_, ok := f.svc.Store().Get(advma, "toc", site.TierJournal)
	assert.False(t, ok, "origin override cleared")
	assert.Equal(t, "red", f.resolveColor(t, advma, "toc"))
	assert.Equal(t, "orange", f.resolveColor(t, embo, "toc"))
	assert.Equal(t, "red", f.resolveColor(t, physics, "toc"))
}

// Exactly the non-exempt customized journals are reported, and none when all are exempt.
func TestPromote_ConflictCompleteness(t *testing.T) {
	t.Run("N customized journals", func(t *testing.T) {
		f := newFixture(t)
		f.edit(t, advma, "toc", "red")
		var want []site.Route
		for i := 0; i < 5; i++ {
			route := site.JournalRoute(fmt.Sprintf("j%d", i))
			f.edit(t, route, "toc", "c"+fmt.Sprint(i))
			want = append(want, route)
		}
		// Noise that must not be reported.
		f.edit(t, site.IssueRoute("j0", "1"), "toc", "issue-only")
		require.NoError(t, f.svc.Exempt(physics, "toc"))
		f.edit(t, site.JournalRoute("exempt-custom"), "toc", "pink")
		require.NoError(t, f.svc.Exempt(site.JournalRoute("exempt-custom"), "toc"))
		f.edit(t, site.GlobalRoute, "toc", "grey")
		f.edit(t, embo, "home", "orange")

		result, err := f.svc.Promote(toGlobal(advma, ResolutionAsk))
		require.NoError(t, err)
		got := make([]site.Route, len(result.Conflicts))
		for i, c := range result.Conflicts {
			got[i] = c.Route
			assert.Equal(t, 1, c.ModificationCount)
		}
		assert.Equal(t, want, got)
		assert.Equal(t, []site.Route{site.JournalRoute("exempt-custom"), physics}, result.Exempted)
	})

	t.Run("all exempt", func(t *testing.T) {
		f := newFixture(t)
		f.edit(t, advma, "toc", "red")
		f.edit(t, embo, "toc", "orange")
		require.NoError(t, f.svc.Exempt(embo, "toc"))

		result, err := f.svc.Promote(toGlobal(advma, ResolutionAsk))
		require.NoError(t, err)
		assert.Empty(t, result.Conflicts)
		assert.True(t, result.Applied, "no conflicts means no decision is needed")
	})
}

// An exempt journal's resolved content never changes on promotion, whatever the resolution.
func TestPromote_ExemptionAbsoluteness(t *testing.T) {
	for _, resolution := range []ConflictResolution{ResolutionSkip, ResolutionForce} {
		t.Run(string(resolution), func(t *testing.T) {
			f := newFixture(t)
			f.edit(t, advma, "toc", "red")
			f.edit(t, embo, "toc", "orange")
			require.NoError(t, f.svc.Exempt(embo, "toc"))
			require.NoError(t, f.svc.Exempt(physics, "toc"))
			physicsIssue := site.IssueRoute("physics", "9")
			require.NoError(t, f.svc.Exempt(physicsIssue, "toc"))

			before := map[site.Route][]canvas.Item{}
			for _, r := range []site.Route{embo, physics, physicsIssue} {
				items, err := f.svc.Engine().Resolve(r, "toc")
				require.NoError(t, err)
				before[r] = items
			}

			result, err := f.svc.Promote(toGlobal(advma, resolution))
			require.NoError(t, err)
			require.True(t, result.Applied)

			for r, items := range before {
				after, err := f.svc.Engine().Resolve(r, "toc")
				require.NoError(t, err)
				assert.True(t, canvas.Equal(items, after), "resolution of %s changed", r)
			}
			assert.Equal(t, []site.RecordKey{{Route: physics, TemplateID: "toc", Tier: site.TierJournal}}, result.Pinned,
				"the issue follows its pinned journal and needs no pin of its own")

			o, ok := f.svc.Store().Get(embo, "toc", site.TierJournal)
			require.True(t, ok)
			assert.True(t, o.IsExempt)
			assert.Equal(t, "orange", colorOf(t, o.Items))
			assert.Equal(t, "red", f.resolveColor(t, site.JournalRoute("unlisted"), "toc"))
		})
	}
}

func TestPromote_Force(t *testing.T) {
	f := newFixture(t)
	f.edit(t, advma, "toc", "red")
	f.edit(t, embo, "toc", "orange")
	emboIssue := site.IssueRoute("embo", "2")
	f.edit(t, emboIssue, "toc", "blue")
	f.edit(t, site.GlobalRoute, "toc", "grey")

	result, err := f.svc.Promote(toGlobal(advma, ResolutionForce))
	require.NoError(t, err)
	assert.Equal(t, []site.Route{embo}, result.Overwritten)
	assert.Empty(t, result.Skipped)

	assert.Equal(t, "red", f.resolveColor(t, embo, "toc"))
	assert.Equal(t, "blue", f.resolveColor(t, emboIssue, "toc"), "issue overrides are not journal conflicts")
	_, ok := f.svc.Store().Get(site.GlobalRoute, "toc", site.TierGlobal)
	assert.False(t, ok, "global-tier override no longer shadows the new base")
	assert.Equal(t, []site.Route{emboIssue}, f.svc.Tracker().CustomizedRoutes("toc"))

	o, ok := f.svc.Store().Get(emboIssue, "toc", site.TierIndividual)
	require.True(t, ok)
	assert.Equal(t, 1, o.ModificationCount, "recounted against the new base")
}

func TestPromote_IssueToJournal(t *testing.T) {
	f := newFixture(t)
	origin := site.IssueRoute("embo", "1")
	sibling := site.IssueRoute("embo", "2")
	exemptIssue := site.IssueRoute("embo", "3")
	f.edit(t, origin, "toc", "blue")
	f.edit(t, sibling, "toc", "green")
	f.edit(t, site.IssueRoute("advma", "1"), "toc", "pink")
	require.NoError(t, f.svc.Exempt(exemptIssue, "toc"))

	result, err := f.svc.Promote(PromotionRequest{Route: origin, TemplateID: "toc", FromTier: site.TierIndividual, ToTier: site.TierJournal})
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Empty(t, result.Conflicts)
	assert.Equal(t, []site.Route{sibling}, result.Shadowed)
	assert.Equal(t, []site.RecordKey{{Route: exemptIssue, TemplateID: "toc", Tier: site.TierIndividual}}, result.Pinned)

	_, ok := f.svc.Store().Get(origin, "toc", site.TierIndividual)
	assert.False(t, ok)
	assert.Equal(t, "blue", f.resolveColor(t, embo, "toc"))
	assert.Equal(t, "blue", f.resolveColor(t, origin, "toc"))
	assert.Equal(t, "blue", f.resolveColor(t, site.IssueRoute("embo", "99"), "toc"))
	assert.Equal(t, "green", f.resolveColor(t, sibling, "toc"))
	assert.Equal(t, "black", f.resolveColor(t, exemptIssue, "toc"))
}

// An exemption on the destination journal does not undo content promoted into it.
func TestPromote_IssueIntoExemptJournal(t *testing.T) {
	f := newFixture(t)
	origin := site.IssueRoute("embo", "7")
	exemptIssue := site.IssueRoute("embo", "8")
	require.NoError(t, f.svc.Exempt(embo, "toc"))
	require.NoError(t, f.svc.Exempt(exemptIssue, "toc"))
	f.edit(t, origin, "toc", "green")

	result, err := f.svc.Promote(PromotionRequest{Route: origin, TemplateID: "toc", FromTier: site.TierIndividual, ToTier: site.TierJournal})
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, []site.RecordKey{{Route: exemptIssue, TemplateID: "toc", Tier: site.TierIndividual}}, result.Pinned)

	assert.Equal(t, "green", f.resolveColor(t, embo, "toc"))
	assert.Equal(t, "green", f.resolveColor(t, origin, "toc"))
	assert.Equal(t, "black", f.resolveColor(t, exemptIssue, "toc"))

	o, ok := f.svc.Store().Get(embo, "toc", site.TierJournal)
	require.True(t, ok)
	assert.True(t, o.IsExempt, "the journal stays exempt from later global promotions")
	assert.True(t, o.HasContent)
}

// Forcing a journal back to the promoted base leaves exempt issues under it unchanged.
func TestPromote_ForceKeepsExemptIssues(t *testing.T) {
	f := newFixture(t)
	exemptIssue := site.IssueRoute("embo", "4")
	plainIssue := site.IssueRoute("embo", "5")
	f.edit(t, advma, "toc", "red")
	f.edit(t, embo, "toc", "orange")
	require.NoError(t, f.svc.Exempt(exemptIssue, "toc"))

	result, err := f.svc.Promote(toGlobal(advma, ResolutionForce))
	require.NoError(t, err)
	assert.Equal(t, []site.Route{embo}, result.Overwritten)
	assert.Equal(t, []site.RecordKey{{Route: exemptIssue, TemplateID: "toc", Tier: site.TierIndividual}}, result.Pinned)

	assert.Equal(t, "red", f.resolveColor(t, embo, "toc"))
	assert.Equal(t, "red", f.resolveColor(t, plainIssue, "toc"))
	assert.Equal(t, "orange", f.resolveColor(t, exemptIssue, "toc"))

	o, ok := f.svc.Store().Get(exemptIssue, "toc", site.TierIndividual)
	require.True(t, ok)
	assert.True(t, o.IsExempt)
}

// Promoting an empty canvas makes the base render nothing instead of the theme.
func TestPromote_EmptyCanvasToGlobal(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Edit(advma, "toc", []canvas.Item{})
	require.NoError(t, err)

	result, err := f.svc.Promote(toGlobal(advma, ResolutionAsk))
	require.NoError(t, err)
	require.True(t, result.Applied)

	toc, err := f.svc.Registry().Get("toc")
	require.NoError(t, err)
	assert.True(t, toc.HasSections())

	for _, route := range []site.Route{physics, advma, site.IssueRoute("embo", "1")} {
		items, err := f.svc.Engine().Resolve(route, "toc")
		require.NoError(t, err)
		assert.Empty(t, items, "%s rendered the theme banner", route)
	}
}

func TestPromote_Rejections(t *testing.T) {
	f := newFixture(t)
	f.edit(t, embo, "toc", "orange")
	records := f.svc.Store().Records()

	testCases := []struct {
		name  string
		req   PromotionRequest
		check func(error) bool
	}{
		{"global source", PromotionRequest{Route: site.GlobalRoute, TemplateID: "toc", FromTier: site.TierGlobal, ToTier: site.TierGlobal}, site.IsInvalidScope},
		{"skipping a tier", PromotionRequest{Route: site.IssueRoute("embo", "1"), TemplateID: "toc", FromTier: site.TierIndividual, ToTier: site.TierGlobal}, site.IsInvalidScope},
		{"downward", PromotionRequest{Route: embo, TemplateID: "toc", FromTier: site.TierJournal, ToTier: site.TierIndividual}, site.IsInvalidScope},
		{"journal tier on global route", PromotionRequest{Route: site.GlobalRoute, TemplateID: "toc", FromTier: site.TierJournal, ToTier: site.TierGlobal}, site.IsInvalidScope},
		{"no source override", toGlobal(advma, ResolutionSkip), site.IsNotFound},
		{"unknown template", PromotionRequest{Route: embo, TemplateID: "nope", FromTier: site.TierJournal, ToTier: site.TierGlobal}, site.IsNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Promote(tc.req)
			require.Error(t, err)
			assert.True(t, tc.check(err), err.Error())
			assert.Equal(t, records, f.svc.Store().Records())
		})
	}

	t.Run("exemption marker is not a source", func(t *testing.T) {
		require.NoError(t, f.svc.Exempt(physics, "toc"))
		_, err := f.svc.Promote(toGlobal(physics, ResolutionSkip))
		assert.True(t, site.IsNotFound(err))
	})

	t.Run("unknown resolution", func(t *testing.T) {
		_, err := f.svc.Promote(toGlobal(embo, "merge"))
		assert.Error(t, err)
	})
}

func TestPromoteToTheme(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Registry().Register(site.Template{ID: "about", Category: site.CategoryWebsite, InheritsFrom: "theme", Sections: []canvas.Item{banner("white")}}))
	f.edit(t, site.GlobalRoute, "toc", "navy")
	require.NoError(t, f.svc.Exempt(embo, "home"))

	result, err := f.svc.PromoteToTheme("toc")
	require.NoError(t, err)
	assert.Equal(t, "theme", result.ThemeID)
	assert.Equal(t, []string{"home", "theme"}, result.Affected)
	assert.Equal(t, []string{"about"}, result.Shadowing)
	assert.Equal(t, []site.RecordKey{{Route: embo, TemplateID: "home", Tier: site.TierJournal}}, result.Pinned)

	theme, err := f.svc.Registry().Get("theme")
	require.NoError(t, err)
	assert.Equal(t, "navy", colorOf(t, theme.Sections))

	toc, err := f.svc.Registry().Get("toc")
	require.NoError(t, err)
	assert.False(t, toc.HasSections())

	assert.Equal(t, "navy", f.resolveColor(t, embo, "toc"))
	assert.Equal(t, "navy", f.resolveColor(t, physics, "home"))
	assert.Equal(t, "grey", f.resolveColor(t, embo, "home"), "exempt journal pinned")
	assert.Equal(t, "white", f.resolveColor(t, physics, "about"))

	_, err = f.svc.PromoteToTheme("theme")
	assert.True(t, site.IsInvalidScope(err))
}
