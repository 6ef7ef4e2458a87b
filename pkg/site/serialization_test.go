package site

import (
	"fmt"
	"testing"

	"github.com/dyluth/folio/pkg/canvas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toStringHash simulates Redis storage, where every hash value comes back as a string.
func toStringHash(hash map[string]interface{}) map[string]string {
	out := make(map[string]string, len(hash))
	for k, v := range hash {
		out[k] = fmt.Sprint(v)
	}
	return out
}

func TestOverrideRoundTrip(t *testing.T) {
	original := &Override{
		Route:             IssueRoute("embo", "12"),
		TemplateID:        "toc",
		Tier:              TierIndividual,
		Items:             []canvas.Item{banner("orange")},
		HasContent:        true,
		ModificationCount: 3,
		LastModifiedMs:    1717171717000,
		IsExempt:          true,
	}

	hash, err := OverrideToHash(original)
	require.NoError(t, err)

	result, err := HashToOverride(toStringHash(hash))
	require.NoError(t, err)
	assert.Equal(t, original, result)
}

func TestOverrideRoundTrip_EmptyCanvas(t *testing.T) {
	original := &Override{Route: JournalRoute("embo"), TemplateID: "toc", Tier: TierJournal, Items: []canvas.Item{}, HasContent: true}

	hash, err := OverrideToHash(original)
	require.NoError(t, err)

	result, err := HashToOverride(toStringHash(hash))
	require.NoError(t, err)
	assert.True(t, result.HasContent)
	assert.NotNil(t, result.Items)
	assert.Empty(t, result.Items)
}

func TestOverrideRoundTrip_ExemptionMarker(t *testing.T) {
	original := &Override{Route: JournalRoute("embo"), TemplateID: "toc", Tier: TierJournal, IsExempt: true}

	hash, err := OverrideToHash(original)
	require.NoError(t, err)

	result, err := HashToOverride(toStringHash(hash))
	require.NoError(t, err)
	assert.False(t, result.HasContent)
	assert.Nil(t, result.Items)
	assert.True(t, result.IsExempt)
}

func TestHashToOverride_Malformed(t *testing.T) {
	_, err := HashToOverride(map[string]string{"items": "{not json", "modification_count": "0"})
	assert.Error(t, err)

	_, err = HashToOverride(map[string]string{"items": "[]", "modification_count": "many"})
	assert.Error(t, err)
}

func TestTemplateRoundTrip(t *testing.T) {
	original := &Template{
		ID:           "toc",
		Category:     CategoryPublication,
		Name:         "Table of contents",
		InheritsFrom: "publisher-theme",
		Sections:     []canvas.Item{banner("black")},
	}

	hash, err := TemplateToHash(original)
	require.NoError(t, err)

	result, err := HashToTemplate(toStringHash(hash))
	require.NoError(t, err)
	assert.Equal(t, original, result)

	t.Run("empty sections stay distinct from none", func(t *testing.T) {
		for _, sections := range [][]canvas.Item{nil, {}} {
			hash, err := TemplateToHash(&Template{ID: "toc", Category: CategoryPublication, Sections: sections})
			require.NoError(t, err)
			result, err := HashToTemplate(toStringHash(hash))
			require.NoError(t, err)
			assert.Equal(t, sections == nil, result.Sections == nil)
		}
	})
}
