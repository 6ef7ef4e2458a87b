package registry

import (
	"testing"

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

func tmpl(id, parent string, items ...canvas.Item) site.Template {
	return site.Template{ID: id, Category: site.CategoryPublication, InheritsFrom: parent, Sections: items}
}

func TestRegisterAndGet(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(tmpl("toc", "", banner("black"))))

	got, err := r.Get("toc")
	require.NoError(t, err)
	assert.Equal(t, "toc", got.ID)
	assert.True(t, got.HasSections())

	t.Run("returns copies", func(t *testing.T) {
		got.Sections[0].Section.Name = "changed"
		again, err := r.Get("toc")
		require.NoError(t, err)
		assert.Equal(t, "Header", again.Sections[0].Section.Name)
	})

	t.Run("missing template", func(t *testing.T) {
		_, err := r.Get("nope")
		assert.True(t, site.IsNotFound(err))
	})

	t.Run("invalid template is rejected", func(t *testing.T) {
		err := r.Register(site.Template{ID: "bad", Category: "blog"})
		assert.Error(t, err)
		assert.False(t, r.Has("bad"))
	})
}

// Cyclic registration must fail without inserting anything.
func TestRegister_CyclicInheritance(t *testing.T) {
	t.Run("batch A->B->A rejects both", func(t *testing.T) {
		r := New()
		err := r.RegisterAll(tmpl("a", "b"), tmpl("b", "a"))
		require.Error(t, err)
		assert.True(t, site.IsCyclicInheritance(err))
		assert.False(t, r.Has("a"))
		assert.False(t, r.Has("b"))
		assert.Equal(t, 0, r.Len())
	})

	t.Run("incremental registration closing a loop", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Register(tmpl("a", "b")))
		require.NoError(t, r.Register(tmpl("b", "c")))

		err := r.Register(tmpl("c", "a"))
		require.Error(t, err)
		assert.True(t, site.IsCyclicInheritance(err))
		assert.False(t, r.Has("c"))

		var cyc *site.CyclicInheritanceError
		require.ErrorAs(t, err, &cyc)
		assert.Equal(t, []string{"c", "a", "b", "c"}, cyc.Chain)
	})

	t.Run("replacement introducing a loop keeps the old version", func(t *testing.T) {
		r := New()
		require.NoError(t, r.RegisterAll(tmpl("root", ""), tmpl("child", "root")))

		err := r.Register(tmpl("root", "child"))
		require.Error(t, err)

		root, err := r.Get("root")
		require.NoError(t, err)
		assert.Empty(t, root.InheritsFrom)
	})

	t.Run("self inheritance", func(t *testing.T) {
		r := New()
		assert.True(t, site.IsCyclicInheritance(r.Register(tmpl("a", "a"))))
	})
}

func TestAncestryChain(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterAll(
		tmpl("theme", ""),
		tmpl("journal-home", "theme"),
		tmpl("toc", "journal-home", banner("black")),
		tmpl("orphan", "missing"),
	))

	chain, err := r.AncestryChain("toc")
	require.NoError(t, err)
	ids := make([]string, len(chain))
	for i, c := range chain {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"toc", "journal-home", "theme"}, ids)

	_, err = r.AncestryChain("orphan")
	assert.True(t, site.IsNotFound(err))

	_, err = r.AncestryChain("unknown")
	assert.True(t, site.IsNotFound(err))
}

func TestChildrenAndList(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterAll(tmpl("theme", ""), tmpl("toc", "theme"), tmpl("home", "theme"), tmpl("about", "")))

	assert.Equal(t, []string{"home", "toc"}, r.Children("theme"))
	assert.Empty(t, r.Children("toc"))

	list := r.List()
	require.Len(t, list, 4)
	assert.Equal(t, "about", list[0].ID)
	assert.Equal(t, "toc", list[3].ID)
}

func TestSetSections(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(tmpl("toc", "", banner("black"))))

	red := []canvas.Item{banner("red")}
	require.NoError(t, r.SetSections("toc", red))

	got, err := r.Get("toc")
	require.NoError(t, err)
	assert.True(t, canvas.Equal(red, got.Sections))

	red[0].Section.Name = "mutated after write"
	got, _ = r.Get("toc")
	assert.Equal(t, "Header", got.Sections[0].Section.Name)

	assert.True(t, site.IsNotFound(r.SetSections("nope", nil)))
	assert.Error(t, r.SetSections("toc", []canvas.Item{{}}))

	t.Run("empty canvas is still own sections", func(t *testing.T) {
		require.NoError(t, r.SetSections("toc", []canvas.Item{}))
		got, _ := r.Get("toc")
		assert.True(t, got.HasSections())

		require.NoError(t, r.SetSections("toc", nil))
		got, _ = r.Get("toc")
		assert.False(t, got.HasSections())
	})
}

func TestSnapshotRestore(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterAll(tmpl("theme", ""), tmpl("toc", "theme", banner("black"))))

	snap := r.Snapshot()
	require.NoError(t, r.SetSections("toc", []canvas.Item{banner("red")}))
	require.NoError(t, r.Register(tmpl("extra", "")))

	require.NoError(t, r.Restore(snap))
	assert.False(t, r.Has("extra"))
	got, err := r.Get("toc")
	require.NoError(t, err)
	assert.Equal(t, "black", got.Sections[0].Section.Areas[0].Widgets[0].Props["color"])

	t.Run("cyclic restore leaves registry untouched", func(t *testing.T) {
		err := r.Restore([]site.Template{tmpl("a", "b"), tmpl("b", "a")})
		assert.True(t, site.IsCyclicInheritance(err))
		assert.True(t, r.Has("toc"))
	})
}
