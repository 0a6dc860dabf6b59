// Package chunk splits long document bodies into overlapping windows
// suitable for independent embedding, preserving paragraph boundaries
// where possible.
package chunk

import "strings"

// Config holds the adaptive chunking policy parameters. All values are
// configurable per vault.
type Config struct {
	// Threshold is the body length (characters) below which a document is
	// emitted as a single chunk.
	Threshold int
	// Size is the nominal sliding-window width in characters.
	Size int
	// Overlap is how many characters of the previous window are repeated
	// at the start of the next one.
	Overlap int
	// BoundarySlack bounds how far a cut point may be nudged to land on a
	// paragraph or sentence boundary.
	BoundarySlack int
}

// DefaultConfig returns the standard chunking thresholds.
func DefaultConfig() Config {
	return Config{
		Threshold:     4000,
		Size:          1000,
		Overlap:       200,
		BoundarySlack: 200,
	}
}

// Chunk is a sub-window of a document indexed as an independent retrieval
// unit. Ordinal is zero-based within its parent document.
type Chunk struct {
	DocPath string
	Ordinal int
	Start   int
	End     int
	Body    string
}

// Split implements the Chunker's sliding-window policy:
//   - if len(body) <= threshold, emit one chunk equal to the whole body.
//   - otherwise produce sliding windows of Size with Overlap, cutting at
//     the nearest paragraph boundary (blank line) within ±BoundarySlack of
//     the nominal cut point; failing that, at the nearest sentence
//     boundary; failing that, at the nominal offset.
func Split(docPath string, body string, cfg Config) []*Chunk {
	if cfg.Size <= 0 {
		cfg = DefaultConfig()
	}

	if len(body) <= cfg.Threshold {
		return []*Chunk{{DocPath: docPath, Ordinal: 0, Start: 0, End: len(body), Body: body}}
	}

	var chunks []*Chunk
	start := 0
	ordinal := 0
	n := len(body)

	for start < n {
		nominalEnd := start + cfg.Size
		var end int
		if nominalEnd >= n {
			end = n
		} else {
			end = snapCut(body, nominalEnd, start, n, cfg.BoundarySlack)
		}

		chunks = append(chunks, &Chunk{
			DocPath: docPath,
			Ordinal: ordinal,
			Start:   start,
			End:     end,
			Body:    body[start:end],
		})
		ordinal++

		if end >= n {
			break
		}

		next := end - cfg.Overlap
		if next <= start {
			// Guarantee forward progress even with a degenerate overlap
			// configuration (Overlap >= Size).
			next = end
		}
		start = next
	}

	return chunks
}

// snapCut finds the best cut point near nominal, within [lowerBound,n),
// preferring a paragraph boundary, then a sentence boundary, then the
// nominal offset itself. lowerBound is the current window's start, so the
// search never produces a zero-length chunk.
func snapCut(body string, nominal, lowerBound, n, slack int) int {
	windowStart := nominal - slack
	if windowStart < lowerBound+1 {
		windowStart = lowerBound + 1
	}
	windowEnd := nominal + slack
	if windowEnd > n {
		windowEnd = n
	}
	if windowStart >= windowEnd {
		return nominal
	}

	if cut, ok := nearestParagraphBoundary(body, nominal, windowStart, windowEnd); ok {
		return cut
	}
	if cut, ok := nearestSentenceBoundary(body, nominal, windowStart, windowEnd); ok {
		return cut
	}
	return nominal
}

// nearestParagraphBoundary looks for a blank line ("\n\n") inside the
// window and returns the offset immediately after it that is closest to
// nominal.
func nearestParagraphBoundary(body string, nominal, windowStart, windowEnd int) (int, bool) {
	best := -1
	bestDist := -1
	search := body[windowStart:windowEnd]
	offset := 0
	for {
		idx := strings.Index(search[offset:], "\n\n")
		if idx == -1 {
			break
		}
		pos := windowStart + offset + idx + 2
		dist := abs(pos - nominal)
		if best == -1 || dist < bestDist {
			best, bestDist = pos, dist
		}
		offset += idx + 2
		if offset >= len(search) {
			break
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

var sentenceEnders = []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}

// nearestSentenceBoundary looks for a sentence-ending punctuation mark
// followed by whitespace inside the window, returning the offset closest
// to nominal.
func nearestSentenceBoundary(body string, nominal, windowStart, windowEnd int) (int, bool) {
	search := body[windowStart:windowEnd]
	best := -1
	bestDist := -1
	for _, ender := range sentenceEnders {
		offset := 0
		for {
			idx := strings.Index(search[offset:], ender)
			if idx == -1 {
				break
			}
			pos := windowStart + offset + idx + len(ender)
			dist := abs(pos - nominal)
			if best == -1 || dist < bestDist {
				best, bestDist = pos, dist
			}
			offset += idx + len(ender)
			if offset >= len(search) {
				break
			}
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
