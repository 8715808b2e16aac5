package store

import (
	"context"
	"math"
	"sort"
)

// Search defaults; the hosted match function is called with the same values.
const (
	DefaultMatchFunction  = "match_documents"
	DefaultMatchThreshold = 0.5
	DefaultMatchCount     = 3
)

// MatchOptions bounds a similarity search.
type MatchOptions struct {
	// Threshold is the minimum cosine similarity; only records strictly
	// above it are returned.
	Threshold float64

	// Count is the maximum number of matches (default DefaultMatchCount).
	Count int
}

// Match is a stored document similar to a query.
type Match struct {
	Title      string  `json:"titulo"`
	Content    string  `json:"contenido"`
	Similarity float64 `json:"similarity"`
}

// Searcher finds the stored documents closest to a query embedding, most
// similar first.
type Searcher interface {
	Search(ctx context.Context, query []float32, opts MatchOptions) ([]Match, error)
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// the lengths differ or either vector is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// rankMatches keeps the records above the threshold, most similar first, and
// truncates to opts.Count. Ties keep insertion order.
func rankMatches(records []StoredRecord, query []float32, opts MatchOptions) []Match {
	matches := make([]Match, 0, len(records))
	for _, r := range records {
		sim := CosineSimilarity(query, r.Record.Embedding)
		if sim <= opts.Threshold {
			continue
		}
		matches = append(matches, Match{
			Title:      r.Record.Title,
			Content:    r.Record.Content,
			Similarity: sim,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > opts.Count {
		matches = matches[:opts.Count]
	}
	return matches
}

func (o MatchOptions) withDefaults() MatchOptions {
	if o.Count <= 0 {
		o.Count = DefaultMatchCount
	}
	return o
}
