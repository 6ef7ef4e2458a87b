package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClone_KeepsIDsAndDetaches(t *testing.T) {
	items := []Item{banner("black")}
	c := Clone(items)

	require.Equal(t, items, c)
	assert.True(t, Equal(items, c))

	c[0].Section.Areas[0].Widgets[0].Props["color"] = "orange"
	c[0].Section.Name = "Changed"
	assert.Equal(t, "black", items[0].Section.Areas[0].Widgets[0].Props["color"], "clone must not alias props")
	assert.Equal(t, "Header", items[0].Section.Name, "clone must not alias sections")
}

func TestClone_NilAndEmpty(t *testing.T) {
	assert.Nil(t, Clone(nil))

	empty := Clone([]Item{})
	assert.NotNil(t, empty)
	assert.Len(t, empty, 0)
}

func TestCloneWithNewIDs(t *testing.T) {
	items := []Item{
		banner("black"),
		WidgetItem(NewWidget(WidgetTabs, nil, NewWidget(WidgetTabPanel, nil))),
	}
	c := CloneWithNewIDs(items)

	require.NoError(t, Validate(c))
	assert.Equal(t, Count(items), Count(c))

	original := make(map[string]bool)
	for _, id := range IDs(items) {
		original[id] = true
	}
	for _, id := range IDs(c) {
		assert.False(t, original[id], "id %s was reused", id)
	}

	// Same content, different identities: every node is removed and re-added at top level.
	assert.Equal(t, 4, DiffCount(items, c))
	assert.NoError(t, Validate(append(Clone(items), c...)), "clone can live beside the original")
}
