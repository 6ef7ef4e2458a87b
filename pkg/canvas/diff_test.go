package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func widgets(ids ...string) []Item {
	items := make([]Item, len(ids))
	for i, id := range ids {
		items[i] = Item{Widget: &Widget{ID: id, Kind: WidgetText}}
	}
	return items
}

func TestDiff_Identical(t *testing.T) {
	items := []Item{banner("black")}
	assert.Equal(t, 0, DiffCount(items, Clone(items)))
	assert.True(t, Equal(nil, []Item{}))
}

func TestDiff_PropChange(t *testing.T) {
	base := []Item{banner("black")}
	mod := Clone(base)
	mod[0].Section.Areas[0].Widgets[0].Props["color"] = "orange"

	d := Diff(base, mod)
	assert.Equal(t, 1, d.Count())
	assert.Equal(t, 1, d.CountOf(ChangeUpdated))
	assert.Equal(t, NodeWidget, d.Changes[0].Kind)
}

func TestDiff_AddRemove(t *testing.T) {
	base := widgets("a", "b", "c")
	mod := widgets("a", "c", "d")

	d := Diff(base, mod)
	assert.Equal(t, 1, d.CountOf(ChangeAdded))
	assert.Equal(t, 1, d.CountOf(ChangeRemoved))
	assert.Equal(t, 0, d.CountOf(ChangeMoved))
	assert.Equal(t, 2, d.Count())
}

func TestDiff_Moves(t *testing.T) {
	testCases := []struct {
		name  string
		base  []string
		mod   []string
		moves int
	}{
		{"swap adjacent", []string{"a", "b"}, []string{"b", "a"}, 1},
		{"move last to front", []string{"a", "b", "c", "d"}, []string{"d", "a", "b", "c"}, 1},
		{"reverse", []string{"a", "b", "c", "d"}, []string{"d", "c", "b", "a"}, 3},
		{"unchanged", []string{"a", "b", "c"}, []string{"a", "b", "c"}, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := Diff(widgets(tc.base...), widgets(tc.mod...))
			assert.Equal(t, tc.moves, d.CountOf(ChangeMoved))
			assert.Equal(t, tc.moves, d.Count())
		})
	}
}

func TestDiff_NestedChanges(t *testing.T) {
	base := []Item{banner("black")}
	mod := Clone(base)
	mod[0].Section.Name = "Masthead"
	mod[0].Section.Areas[0].Widgets = append(mod[0].Section.Areas[0].Widgets, NewWidget(WidgetText, nil))
	mod = append(mod, WidgetItem(NewWidget(WidgetTabs, nil, NewWidget(WidgetTabPanel, nil))))

	d := Diff(base, mod)
	assert.Equal(t, 1, d.CountOf(ChangeUpdated), "section rename")
	assert.Equal(t, 2, d.CountOf(ChangeAdded), "text widget and tabs subtree")
	assert.Equal(t, 3, d.Count())
}

func TestDiff_KindSwitch(t *testing.T) {
	base := []Item{{Widget: &Widget{ID: "x", Kind: WidgetText}}}
	mod := []Item{{Section: &Section{ID: "x"}}}

	assert.Equal(t, 1, DiffCount(base, mod))
}

func TestLongestIncreasing(t *testing.T) {
	keep := longestIncreasing([]int{3, 0, 1, 2})
	assert.Equal(t, []bool{false, true, true, true}, keep)
	assert.Empty(t, longestIncreasing(nil))
}
