package store

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// tokenRegex splits on anything that isn't a letter or digit. Tokenizing a
// note body doesn't need code-aware camelCase/snake_case splitting the way
// indexing source files would; a plain word split is the right fit for
// prose.
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

func tokenize(text string, minLen int) []string {
	words := tokenRegex.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) >= minLen && !englishStopWords[w] {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

var englishStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"of": true, "to": true, "in": true, "on": true, "for": true, "with": true,
	"that": true, "this": true, "it": true, "as": true, "at": true, "by": true,
}

type postingList map[string]int // docID -> term frequency

type lexicalDoc struct {
	id       string
	length   int
	tags     []string
	tagSet   map[string]bool
}

// LexicalIndex is a hand-rolled BM25 inverted index with an additive
// tag-match bonus: score(d,q) = BM25(d,q) + Σ_{t∈q∩tags(d)} λ·idf(t),
// where tag matching is two-tier — an exact tag match first, falling back
// to a substring match against any of the document's tags when no exact
// match exists. The BM25 and idf components reuse the same document
// frequencies so the tag bonus stays on the same scale as the keyword
// score.
type LexicalIndex struct {
	mu sync.RWMutex

	cfg BM25Config

	postings map[string]postingList // term -> postings
	docs     map[string]*lexicalDoc
	totalLen int
	closed   bool
}

// NewLexicalIndex constructs an empty index.
func NewLexicalIndex(cfg BM25Config) *LexicalIndex {
	if cfg.K1 == 0 && cfg.B == 0 {
		cfg = DefaultBM25Config()
	}
	return &LexicalIndex{
		cfg:      cfg,
		postings: make(map[string]postingList),
		docs:     make(map[string]*lexicalDoc),
	}
}

// Index adds or replaces documents.
func (idx *LexicalIndex) Index(_ context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return fmt.Errorf("index is closed")
	}

	for _, d := range docs {
		idx.removeLocked(d.ID)

		tokens := tokenize(d.Content, idx.cfg.MinTokenLength)
		freqs := make(map[string]int, len(tokens))
		for _, t := range tokens {
			freqs[t]++
		}

		tagSet := make(map[string]bool, len(d.Tags))
		for _, t := range d.Tags {
			tagSet[strings.ToLower(t)] = true
		}

		idx.docs[d.ID] = &lexicalDoc{id: d.ID, length: len(tokens), tags: d.Tags, tagSet: tagSet}
		idx.totalLen += len(tokens)

		for term, freq := range freqs {
			pl, ok := idx.postings[term]
			if !ok {
				pl = make(postingList)
				idx.postings[term] = pl
			}
			pl[d.ID] = freq
		}
	}

	return nil
}

// Delete removes documents by ID.
func (idx *LexicalIndex) Delete(_ context.Context, docIDs []string) error {
	if len(docIDs) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return fmt.Errorf("index is closed")
	}

	for _, id := range docIDs {
		idx.removeLocked(id)
	}
	return nil
}

func (idx *LexicalIndex) removeLocked(id string) {
	doc, ok := idx.docs[id]
	if !ok {
		return
	}
	idx.totalLen -= doc.length
	delete(idx.docs, id)
	for term, pl := range idx.postings {
		if _, ok := pl[id]; ok {
			delete(pl, id)
			if len(pl) == 0 {
				delete(idx.postings, term)
			}
		}
	}
}

func (idx *LexicalIndex) avgDocLength() float64 {
	if len(idx.docs) == 0 {
		return 0
	}
	return float64(idx.totalLen) / float64(len(idx.docs))
}

func (idx *LexicalIndex) idf(term string) float64 {
	pl, ok := idx.postings[term]
	n := len(idx.docs)
	df := 0
	if ok {
		df = len(pl)
	}
	// BM25 idf in the log(1 + ...) form, which stays positive even for a term
	// present in every document, so it still contributes to the tag bonus;
	// the clamp at 0 is only a guard.
	v := math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
	if v < 0 {
		v = 0
	}
	return v
}

// Search scores every document containing at least one query term via
// BM25, then adds the tag-match bonus for every query token that matches
// one of the document's tags — exactly first, and by substring only when
// no exact tag match exists for that token.
func (idx *LexicalIndex) Search(_ context.Context, queryStr string, limit int) ([]*LexicalResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, fmt.Errorf("index is closed")
	}

	queryStr = strings.TrimSpace(queryStr)
	if queryStr == "" {
		return []*LexicalResult{}, nil
	}

	queryTokens := tokenize(queryStr, idx.cfg.MinTokenLength)
	if len(queryTokens) == 0 {
		return []*LexicalResult{}, nil
	}

	avgLen := idx.avgDocLength()
	scores := make(map[string]float64)
	matched := make(map[string]map[string]bool)

	for _, term := range queryTokens {
		pl, ok := idx.postings[term]
		if !ok {
			continue
		}
		idf := idx.idf(term)
		for docID, freq := range pl {
			doc := idx.docs[docID]
			denom := float64(freq) + idx.cfg.K1*(1-idx.cfg.B+idx.cfg.B*float64(doc.length)/maxF(avgLen, 1))
			score := idf * (float64(freq) * (idx.cfg.K1 + 1)) / denom
			scores[docID] += score

			if matched[docID] == nil {
				matched[docID] = make(map[string]bool)
			}
			matched[docID][term] = true
		}
	}

	for docID, doc := range idx.docs {
		bonus := idx.tagBonus(queryTokens, doc)
		if bonus > 0 {
			scores[docID] += bonus
		}
	}

	results := make([]*LexicalResult, 0, len(scores))
	for docID, score := range scores {
		terms := make([]string, 0, len(matched[docID]))
		for t := range matched[docID] {
			terms = append(terms, t)
		}
		sort.Strings(terms)
		results = append(results, &LexicalResult{DocID: docID, Score: score, MatchedTerms: terms})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// tagBonus computes Σ λ·idf(t) over query tokens matching doc's tags,
// exact match preferred over substring match per token.
func (idx *LexicalIndex) tagBonus(queryTokens []string, doc *lexicalDoc) float64 {
	if len(doc.tagSet) == 0 {
		return 0
	}
	var bonus float64
	for _, token := range queryTokens {
		if doc.tagSet[token] {
			bonus += idx.cfg.TagBoost * idx.idf(token)
			continue
		}
		for tag := range doc.tagSet {
			if strings.Contains(tag, token) {
				bonus += idx.cfg.TagBoost * idx.idf(token)
				break
			}
		}
	}
	return bonus
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// AllIDs returns every indexed document ID.
func (idx *LexicalIndex) AllIDs() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	ids := make([]string, 0, len(idx.docs))
	for id := range idx.docs {
		ids = append(ids, id)
	}
	return ids
}

// Stats reports index-wide statistics.
func (idx *LexicalIndex) Stats() *LexicalStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return &LexicalStats{
		DocumentCount: len(idx.docs),
		TermCount:     len(idx.postings),
		AvgDocLength:  idx.avgDocLength(),
	}
}

// persistedLexicalIndex is the gob-serializable snapshot of a LexicalIndex.
type persistedLexicalIndex struct {
	Config   BM25Config
	Postings map[string]postingList
	Docs     map[string]*persistedLexicalDoc
	TotalLen int
}

type persistedLexicalDoc struct {
	ID     string
	Length int
	Tags   []string
}

// Save persists the index atomically (temp file + rename).
func (idx *LexicalIndex) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	snapshot := persistedLexicalIndex{
		Config:   idx.cfg,
		Postings: idx.postings,
		Docs:     make(map[string]*persistedLexicalDoc, len(idx.docs)),
		TotalLen: idx.totalLen,
	}
	for id, d := range idx.docs {
		snapshot.Docs[id] = &persistedLexicalDoc{ID: d.id, Length: d.length, Tags: d.tags}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(snapshot); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode index: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load replaces the index's contents with a previously saved snapshot.
func (idx *LexicalIndex) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var snapshot persistedLexicalIndex
	if err := gob.NewDecoder(f).Decode(&snapshot); err != nil {
		return fmt.Errorf("decode index: %w", err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.cfg = snapshot.Config
	idx.postings = snapshot.Postings
	idx.totalLen = snapshot.TotalLen
	idx.docs = make(map[string]*lexicalDoc, len(snapshot.Docs))
	for id, d := range snapshot.Docs {
		tagSet := make(map[string]bool, len(d.Tags))
		for _, t := range d.Tags {
			tagSet[strings.ToLower(t)] = true
		}
		idx.docs[id] = &lexicalDoc{id: d.ID, length: d.Length, tags: d.Tags, tagSet: tagSet}
	}
	idx.closed = false

	return nil
}

// Close marks the index unusable. Idempotent.
func (idx *LexicalIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.closed = true
	return nil
}
