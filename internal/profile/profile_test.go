package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pborenstein/temoa/internal/pipeline"
)

func TestResolveDefaultProfile(t *testing.T) {
	p := Resolve("default")
	assert.Equal(t, pipeline.ModeHybrid, p.Mode)
	assert.True(t, p.Rerank)
	assert.True(t, p.ChunkingEnabled)
	assert.True(t, p.TimeBoostEnabled)
	assert.Equal(t, 90.0, p.HalfLifeDays)
	assert.Equal(t, pipeline.ExpandAuto, p.Expand)
	assert.Equal(t, 10, p.Limit)
}

func TestResolveReposProfileDisablesTimeBoostAndChunking(t *testing.T) {
	p := Resolve("repos")
	assert.Equal(t, pipeline.ModeDenseOnly, p.Mode)
	assert.False(t, p.TimeBoostEnabled)
	assert.False(t, p.ChunkingEnabled)
	assert.Equal(t, pipeline.ExpandOff, p.Expand)
}

func TestResolveKeywordsProfileIsBM25Only(t *testing.T) {
	p := Resolve("keywords")
	assert.Equal(t, pipeline.ModeBM25Only, p.Mode)
	assert.False(t, p.Rerank)
	assert.False(t, p.TimeBoostEnabled)
	assert.False(t, p.ChunkingEnabled)
}

func TestResolveDeepProfileAlwaysExpands(t *testing.T) {
	p := Resolve("deep")
	assert.Equal(t, pipeline.ExpandOn, p.Expand)
	assert.Equal(t, 25, p.Limit)
	assert.Equal(t, 180.0, p.HalfLifeDays)
	assert.True(t, p.ChunkingEnabled)
}

func TestResolveUnknownFallsBackToDefault(t *testing.T) {
	p := Resolve("nonexistent")
	assert.Equal(t, Resolve("default"), p)
}

func TestNamesListsAllFiveBuiltins(t *testing.T) {
	assert.Len(t, Names(), 5)
}
