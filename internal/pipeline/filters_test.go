package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrefilterWhitelistNilWithoutInclusiveFilters(t *testing.T) {
	records := []metaRecord{{DocPath: "a.md", Tags: []string{"work"}}}
	wl := buildPrefilterWhitelist(records, ResultFilters{})
	assert.Nil(t, wl)
}

func TestBuildPrefilterWhitelistFiltersByTag(t *testing.T) {
	records := []metaRecord{
		{DocPath: "a.md", Tags: []string{"work"}},
		{DocPath: "b.md", Tags: []string{"garden"}},
	}
	wl := buildPrefilterWhitelist(records, ResultFilters{IncludeTags: []string{"work"}})
	assert.True(t, wl["a.md"])
	assert.False(t, wl["b.md"])
}

func TestApplyResultFiltersDropsInactiveByDefault(t *testing.T) {
	results := []*SearchResult{
		{DocPath: "a.md", Status: "active"},
		{DocPath: "b.md", Status: "inactive"},
	}
	out := applyResultFilters(results, ResultFilters{})
	assert.Len(t, out, 1)
	assert.Equal(t, "a.md", out[0].DocPath)
}

func TestApplyResultFiltersIncludeStatusesOverridesDefault(t *testing.T) {
	results := []*SearchResult{
		{DocPath: "b.md", Status: "hidden"},
	}
	out := applyResultFilters(results, ResultFilters{IncludeStatuses: []string{"hidden"}})
	assert.Len(t, out, 1)
}

func TestApplyResultFiltersExcludeTags(t *testing.T) {
	results := []*SearchResult{
		{DocPath: "a.md", Status: "active", Tags: []string{"draft"}},
		{DocPath: "b.md", Status: "active", Tags: []string{"final"}},
	}
	out := applyResultFilters(results, ResultFilters{ExcludeTags: []string{"draft"}})
	assert.Len(t, out, 1)
	assert.Equal(t, "b.md", out[0].DocPath)
}

func TestBuildPrefilterWhitelistMatchesNonStringProps(t *testing.T) {
	records := []metaRecord{
		{DocPath: "a.md", Props: map[string]any{"published": true, "priority": int64(2)}},
		{DocPath: "b.md", Props: map[string]any{"published": false, "priority": int64(2)}},
	}
	wl := buildPrefilterWhitelist(records, ResultFilters{IncludeProps: map[string]string{"published": "true"}})
	assert.True(t, wl["a.md"])
	assert.False(t, wl["b.md"])
}

func TestApplyResultFiltersExcludePropsMatchesNonStringValue(t *testing.T) {
	results := []*SearchResult{
		{DocPath: "a.md", Status: "active", Frontmatter: map[string]any{"archived": true}},
		{DocPath: "b.md", Status: "active", Frontmatter: map[string]any{"archived": false}},
	}
	out := applyResultFilters(results, ResultFilters{ExcludeProps: map[string]string{"archived": "true"}})
	assert.Len(t, out, 1)
	assert.Equal(t, "b.md", out[0].DocPath)
}

func TestRestrictToDocumentGranularityDropsNonFirstChunks(t *testing.T) {
	results := []*SearchResult{
		{DocPath: "a.md", Ordinal: 0},
		{DocPath: "a.md", Ordinal: 1},
		{DocPath: "b.md", Ordinal: 0},
	}
	out := restrictToDocumentGranularity(results, false)
	assert.Len(t, out, 2)
	for _, r := range out {
		assert.Equal(t, 0, r.Ordinal)
	}
}

func TestRestrictToDocumentGranularityNoopWhenEnabled(t *testing.T) {
	results := []*SearchResult{
		{DocPath: "a.md", Ordinal: 0},
		{DocPath: "a.md", Ordinal: 1},
	}
	out := restrictToDocumentGranularity(results, true)
	assert.Len(t, out, 2)
}

func TestDedupeByPathKeepsFirstSeen(t *testing.T) {
	results := []*SearchResult{
		{DocPath: "a.md", Ordinal: 0, Score: 0.9},
		{DocPath: "a.md", Ordinal: 1, Score: 0.5},
		{DocPath: "b.md", Ordinal: 0, Score: 0.7},
	}
	out := dedupeByPath(results)
	assert.Len(t, out, 2)
	assert.Equal(t, 0, out[0].Ordinal)
}
