package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dyluth/folio/pkg/canvas"
	"github.com/dyluth/folio/pkg/site"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func banner(color string) canvas.Item {
	return canvas.NewSection("Header", canvas.LayoutOneColumn,
		canvas.NewArea("main", canvas.NewWidget(canvas.WidgetBanner, map[string]string{"color": color})),
	)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), ".folio", "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleState() *site.State {
	return &site.State{
		Version: site.StateVersion,
		Templates: []site.Template{
			{ID: "theme", Category: site.CategoryTheme, Name: "Publisher theme", Sections: []canvas.Item{banner("grey")}},
			{ID: "toc", Category: site.CategoryPublication, InheritsFrom: "theme"},
		},
		Overrides: []site.Override{
			{Route: site.GlobalRoute, TemplateID: "toc", Tier: site.TierGlobal, Items: []canvas.Item{}, HasContent: true, LastModifiedMs: 10},
			{Route: site.JournalRoute("embo"), TemplateID: "toc", Tier: site.TierJournal, Items: []canvas.Item{banner("orange")}, HasContent: true, ModificationCount: 2, LastModifiedMs: 20},
			{Route: site.JournalRoute("physics"), TemplateID: "toc", Tier: site.TierJournal, IsExempt: true, LastModifiedMs: 30},
		},
	}
}

func TestOpen_RejectsEmptyPath(t *testing.T) {
	_, err := Open(context.Background(), " ")
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	has, err := s.HasState(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	empty, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, site.StateVersion, empty.Version)
	assert.Empty(t, empty.Templates)

	original := sampleState()
	require.NoError(t, s.Save(ctx, original, nil))

	has, err = s.HasState(ctx)
	require.NoError(t, err)
	assert.True(t, has)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)

	t.Run("save replaces everything", func(t *testing.T) {
		next := sampleState()
		next.Overrides = next.Overrides[2:]
		require.NoError(t, s.Save(ctx, next, nil))

		loaded, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, next.Overrides, loaded.Overrides)
	})

	t.Run("invalid record rolls the save back", func(t *testing.T) {
		bad := sampleState()
		bad.Overrides = append(bad.Overrides, site.Override{Route: site.GlobalRoute, TemplateID: "toc", Tier: site.TierJournal})
		assert.Error(t, s.Save(ctx, bad, nil))

		loaded, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, loaded.Overrides, 1)
	})

	t.Run("survives reopen", func(t *testing.T) {
		path := s.Path()
		require.NoError(t, s.Close())

		reopened, err := Open(ctx, path)
		require.NoError(t, err)
		defer reopened.Close()

		loaded, err := reopened.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, loaded.Templates, 2)
	})
}

func TestEventLog(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	st := sampleState()
	embo := st.Overrides[1]
	t0 := time.UnixMilli(1_700_000_000_000)

	first := []site.ChangeEvent{
		{Type: site.ChangeUpserted, After: &embo, AtMs: t0.UnixMilli()},
		{Type: site.ChangeUpserted, After: &st.Overrides[0], AtMs: t0.Add(time.Minute).UnixMilli()},
	}
	require.NoError(t, s.Save(ctx, st, first))
	second := []site.ChangeEvent{
		{Type: site.ChangeRemoved, Before: &embo, AtMs: t0.Add(time.Hour).UnixMilli()},
	}
	require.NoError(t, s.Save(ctx, st, second))

	all, err := s.Events(ctx, EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3, "the log is appended, never replaced")
	assert.Less(t, all[0].Seq, all[1].Seq)
	assert.Equal(t, site.ChangeRemoved, all[2].Event.Type)
	assert.Equal(t, embo.Key(), all[2].Event.Key())

	byRoute, err := s.Events(ctx, EventFilter{Route: site.JournalRoute("embo")})
	require.NoError(t, err)
	assert.Len(t, byRoute, 2)

	since, err := s.Events(ctx, EventFilter{Since: t0.Add(30 * time.Second)})
	require.NoError(t, err)
	assert.Len(t, since, 2)

	window, err := s.Events(ctx, EventFilter{TemplateID: "toc", Since: t0, Until: t0.Add(time.Minute), Limit: 1})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, all[0].Seq, window[0].Seq)
}
