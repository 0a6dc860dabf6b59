package pipeline

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// applyTimeBoost multiplies each result's current ordering score by a
// recency factor and re-sorts descending. A result whose resolved file path
// would escape the vault root is left unboosted rather than trusted — a
// defense against a crafted DocPath attempting directory traversal.
//
// Age is computed from a live stat of the file on disk, not the mtime
// captured at last (re)index time: the path-containment check only has
// teeth if it's actually guarding the stat call it's paired with, and a
// file edited since the last reindex should get a fresher recency boost
// without waiting on the next reindex. If the stat fails (file deleted,
// permissions changed since retrieval), the cached ModifiedDate from the
// index is used instead of dropping the boost entirely.
func applyTimeBoost(results []*SearchResult, vaultRoot string, halfLifeDays, maxBoost float64, now time.Time) []*SearchResult {
	absRoot, err := filepath.Abs(vaultRoot)
	if err != nil {
		return results
	}

	for _, r := range results {
		absFile, err := filepath.Abs(filepath.Join(vaultRoot, r.DocPath))
		if err != nil {
			continue
		}
		if !withinRoot(absRoot, absFile) {
			continue
		}

		modTime := r.ModifiedDate
		if info, statErr := os.Stat(absFile); statErr == nil {
			modTime = info.ModTime()
		}

		ageDays := now.Sub(modTime).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		boost := 1 + maxBoost*math.Pow(0.5, ageDays/halfLifeDays)
		r.Score *= boost
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

func withinRoot(absRoot, absFile string) bool {
	rel, err := filepath.Rel(absRoot, absFile)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
