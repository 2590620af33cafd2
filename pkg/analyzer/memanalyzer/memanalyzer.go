// Package memanalyzer is a reference in-memory full-text analyzer.Index:
// whitespace/lowercase tokenization plus term-frequency scoring, good enough
// to exercise FullTextScan's fetch+filter pipeline (§4.6.3). Full-text search
// is declared an external collaborator out of core scope per §1 — no
// retrieval-pack repo ships a production full-text engine usable here, so
// this stays a minimal stdlib stand-in rather than a fabricated dependency.
package memanalyzer

import (
	"context"
	"sort"
	"strings"

	"github.com/forbearing/surrealkv-core/pkg/analyzer"
	"github.com/forbearing/surrealkv-core/types"
)

type doc struct {
	id     *types.RecordId
	tokens map[string]int
}

// Index is an in-memory, append-only full-text index over one column.
type Index struct {
	docs []doc
}

func New() *Index { return &Index{} }

func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// Add indexes the text for rid, replacing any prior entry for the same id.
func (ix *Index) Add(rid *types.RecordId, text string) {
	tf := make(map[string]int)
	for _, tok := range tokenize(text) {
		tf[tok]++
	}
	for i, d := range ix.docs {
		if d.id.Equal(rid) {
			ix.docs[i] = doc{id: rid, tokens: tf}
			return
		}
	}
	ix.docs = append(ix.docs, doc{id: rid, tokens: tf})
}

func (ix *Index) Query(_ context.Context, query string, _ string) (analyzer.HitIterator, error) {
	terms := tokenize(query)
	var hits []analyzer.Hit
	for _, d := range ix.docs {
		score := 0.0
		for _, t := range terms {
			score += float64(d.tokens[t])
		}
		if score > 0 {
			hits = append(hits, analyzer.Hit{RecordID: d.id, Score: score})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return &hitIterator{hits: hits, pos: -1}, nil
}

type hitIterator struct {
	hits []analyzer.Hit
	pos  int
}

func (it *hitIterator) Next(context.Context) bool {
	it.pos++
	return it.pos < len(it.hits)
}
func (it *hitIterator) Hit() analyzer.Hit { return it.hits[it.pos] }
func (it *hitIterator) Err() error        { return nil }
func (it *hitIterator) Close()            {}
