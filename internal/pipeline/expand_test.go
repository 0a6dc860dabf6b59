package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopTFIDFTermsExcludesStopwordsAndQueryTerms(t *testing.T) {
	docs := []string{
		"the gardener planted tomatoes and basil near the fence",
		"basil grows best in full sun with tomatoes nearby",
	}
	terms := topTFIDFTerms(docs, tokenizeSet("basil tips"), 3)

	assert.NotContains(t, terms, "basil") // already in query
	assert.NotContains(t, terms, "the")   // stopword
	assert.NotEmpty(t, terms)
}

func TestShouldExpandAutoTriggersOnShortQueries(t *testing.T) {
	assert.True(t, shouldExpand(ExpandAuto, "garden"))
	assert.False(t, shouldExpand(ExpandAuto, "notes about the spring garden plan"))
	assert.True(t, shouldExpand(ExpandOn, "notes about the spring garden plan"))
	assert.False(t, shouldExpand(ExpandOff, "x"))
}
