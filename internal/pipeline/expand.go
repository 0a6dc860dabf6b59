package pipeline

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode"
)

// stopwords excluded from expansion terms. Short, deliberately small — this
// is vocabulary bridging for a personal note vault, not a general-purpose
// retrieval system.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "for": true, "is": true, "are": true,
	"with": true, "it": true, "this": true, "that": true, "was": true,
	"be": true, "as": true, "at": true, "by": true, "from": true,
}

// expandQuery runs a small dense search with the raw query, computes
// TF-IDF term weights over the returned documents' bodies (an ad-hoc
// corpus of at most 5 documents), and appends the top 3 non-stopword terms
// to the query. On any failure, or an empty result set, it returns the
// original query and logs.
func (p *Pipeline) expandQuery(ctx context.Context, query string) string {
	embedding, err := p.Embedder.Embed(ctx, query)
	if err != nil {
		slog.Debug("query expansion: embed failed, using raw query", slog.String("error", err.Error()))
		return query
	}

	results, err := p.Dense.Search(ctx, embedding, 5)
	if err != nil || len(results) == 0 {
		slog.Debug("query expansion: dense search empty, using raw query")
		return query
	}

	var docs []string
	for _, r := range results {
		if m := p.Meta.Get(r.ChunkID); m != nil && m.Body != "" {
			docs = append(docs, m.Body)
		}
	}
	if len(docs) == 0 {
		return query
	}

	terms := topTFIDFTerms(docs, tokenizeSet(query), 3)
	if len(terms) == 0 {
		return query
	}
	return query + " " + strings.Join(terms, " ")
}

// topTFIDFTerms scores each distinct term across docs by summed TF-IDF and
// returns the top n, excluding stopwords and anything already in exclude.
func topTFIDFTerms(docs []string, exclude map[string]bool, n int) []string {
	docTokens := make([][]string, len(docs))
	df := make(map[string]int)
	for i, d := range docs {
		toks := tokenize(d)
		docTokens[i] = toks
		seen := make(map[string]bool, len(toks))
		for _, t := range toks {
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}

	scores := make(map[string]float64)
	for _, toks := range docTokens {
		tf := make(map[string]int)
		for _, t := range toks {
			tf[t]++
		}
		for t, count := range tf {
			if stopwords[t] || exclude[t] || len(t) < 3 {
				continue
			}
			idf := math.Log(float64(len(docs)) / float64(df[t]))
			scores[t] += float64(count) * idf
		}
	}

	type termScore struct {
		term  string
		score float64
	}
	ranked := make([]termScore, 0, len(scores))
	for t, s := range scores {
		ranked = append(ranked, termScore{t, s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].term < ranked[j].term
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.term
	}
	return out
}

func tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(unicode.ToLower(r))
		} else if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

func tokenizeSet(text string) map[string]bool {
	out := make(map[string]bool)
	for _, t := range tokenize(text) {
		out[t] = true
	}
	return out
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
