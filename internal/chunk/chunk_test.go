package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortBodyIsSingleChunk(t *testing.T) {
	body := "short body"
	chunks := Split("a.md", body, DefaultConfig())
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Ordinal)
	assert.Equal(t, body, chunks[0].Body)
}

func TestSplitLongBodyProducesOverlappingWindows(t *testing.T) {
	// 10,000 characters, well past the 4000-char threshold.
	body := strings.Repeat("word ", 2000)
	chunks := Split("a.md", body, DefaultConfig())
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.Equal(t, i, c.Ordinal)
		assert.Equal(t, body[c.Start:c.End], c.Body)
	}
	// Windows must cover the whole body with no gaps.
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len(body), chunks[len(chunks)-1].End)
	for i := 1; i < len(chunks); i++ {
		assert.LessOrEqual(t, chunks[i].Start, chunks[i-1].End)
	}
}

func TestSplitSnapsToParagraphBoundary(t *testing.T) {
	para := strings.Repeat("x", 900) + "\n\n" + strings.Repeat("y", 900)
	body := para + strings.Repeat("z", 3000)
	cfg := DefaultConfig()
	chunks := Split("a.md", body, cfg)
	require.NotEmpty(t, chunks)
	// First cut should land at the blank line near offset 1000 (within slack).
	assert.InDelta(t, 902, chunks[0].End, 200)
}

func TestSplitManyWindowsOnTenThousandCharDoc(t *testing.T) {
	body := strings.Repeat("lorem ipsum dolor sit amet consectetur ", 260) // 10,140 chars
	chunks := Split("doc.md", body, DefaultConfig())
	assert.Greater(t, len(chunks), 5)
}
