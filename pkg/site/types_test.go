package site

import (
	"testing"

	"github.com/dyluth/folio/pkg/canvas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func banner(color string) canvas.Item {
	return canvas.NewSection("Header", canvas.LayoutOneColumn,
		canvas.NewArea("main", canvas.NewWidget(canvas.WidgetBanner, map[string]string{"color": color})),
	)
}

func TestTemplateValidate(t *testing.T) {
	testCases := []struct {
		name     string
		template Template
		wantErr  string
	}{
		{name: "valid", template: Template{ID: "toc", Category: CategoryPublication, Sections: []canvas.Item{banner("black")}}},
		{name: "empty id", template: Template{Category: CategoryPublication}, wantErr: "id cannot be empty"},
		{name: "separator in id", template: Template{ID: "toc|2", Category: CategoryPublication}, wantErr: "cannot contain"},
		{name: "unknown category", template: Template{ID: "toc", Category: "blog"}, wantErr: "unknown category"},
		{name: "self inheritance", template: Template{ID: "toc", Category: CategoryPublication, InheritsFrom: "toc"}, wantErr: "cyclic inheritance"},
		{name: "invalid canvas", template: Template{ID: "toc", Category: CategoryPublication, Sections: []canvas.Item{{}}}, wantErr: "sections"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.template.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestOverrideValidate(t *testing.T) {
	embo := JournalRoute("embo")

	t.Run("content record", func(t *testing.T) {
		o := &Override{Route: embo, TemplateID: "toc", Tier: TierJournal, Items: []canvas.Item{banner("orange")}, HasContent: true}
		assert.NoError(t, o.Validate())
	})

	t.Run("exemption marker", func(t *testing.T) {
		o := &Override{Route: embo, TemplateID: "toc", Tier: TierJournal, IsExempt: true}
		assert.NoError(t, o.Validate())
	})

	t.Run("marker without exemption", func(t *testing.T) {
		o := &Override{Route: embo, TemplateID: "toc", Tier: TierJournal}
		assert.Error(t, o.Validate())
	})

	t.Run("marker with items", func(t *testing.T) {
		o := &Override{Route: embo, TemplateID: "toc", Tier: TierJournal, IsExempt: true, Items: []canvas.Item{banner("red")}}
		assert.Error(t, o.Validate())
	})

	t.Run("holder route must match tier", func(t *testing.T) {
		o := &Override{Route: embo, TemplateID: "toc", Tier: TierIndividual, HasContent: true}
		err := o.Validate()
		require.Error(t, err)
		assert.True(t, IsInvalidScope(err))
	})
}

func TestRecordKeyRoundTrip(t *testing.T) {
	k := RecordKey{Route: IssueRoute("embo", "4"), TemplateID: "toc", Tier: TierIndividual}

	parsed, err := ParseRecordKey(k.String())
	require.NoError(t, err)
	assert.Equal(t, k, parsed)

	_, err = ParseRecordKey("toc|journal")
	assert.Error(t, err)

	_, err = ParseRecordKey("toc|global|journal/embo")
	assert.Error(t, err)
}

func TestOverrideClone(t *testing.T) {
	o := &Override{Route: JournalRoute("embo"), TemplateID: "toc", Tier: TierJournal, Items: []canvas.Item{banner("orange")}, HasContent: true}
	c := o.Clone()

	c.Items[0].Section.Areas[0].Widgets[0].Props["color"] = "green"
	assert.Equal(t, "orange", o.Items[0].Section.Areas[0].Widgets[0].Props["color"])
	assert.Nil(t, (*Override)(nil).Clone())
}

func TestChangeEventKey(t *testing.T) {
	before := &Override{Route: JournalRoute("embo"), TemplateID: "toc", Tier: TierJournal}

	assert.Equal(t, before.Key(), ChangeEvent{Type: ChangeRemoved, Before: before}.Key())
	assert.Equal(t, before.Key(), ChangeEvent{Type: ChangeUpserted, After: before}.Key())
	assert.Equal(t, RecordKey{}, ChangeEvent{Type: ChangeCleared}.Key())
}
