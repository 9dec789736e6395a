package embed

import (
	"context"
	"math"
	"sort"
	"strings"
)

// RerankResult is a single reranked result.
type RerankResult struct {
	// Index is the original position in the input documents slice.
	Index int
	// Score is the relevance score, higher meaning more relevant. It is in
	// [0, 1] except for NoOpReranker, whose scores start at 1.0 and drop by
	// 0.01 per position, going below 0 after the 101st document.
	Score float64
	// Document is the original document content.
	Document string
}

// RerankerProvider scores (query, document) pairs for the tier engine's
// rerank pass.
type RerankerProvider interface {
	// Rerank scores and reorders documents by relevance to query,
	// returning results sorted by score descending. topK <= 0 returns all.
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankResult, error)
	// Available checks if the reranker is ready to serve requests.
	Available(ctx context.Context) bool
	// Close releases resources.
	Close() error
}

// NoOpReranker preserves input order, assigning monotonically decreasing
// scores so downstream min_score filtering still behaves sensibly.
type NoOpReranker struct{}

func (NoOpReranker) Rerank(_ context.Context, _ string, documents []string, topK int) ([]RerankResult, error) {
	results := make([]RerankResult, len(documents))
	for i, doc := range documents {
		results[i] = RerankResult{Index: i, Score: 1.0 - float64(i)*0.01, Document: doc}
	}
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (NoOpReranker) Available(_ context.Context) bool { return true }

func (NoOpReranker) Close() error { return nil }

var _ RerankerProvider = NoOpReranker{}

// HeuristicReranker scores documents by token-overlap with the query,
// squashed through a sigmoid so scores stay in [0, 1]. Used when no
// cross-encoder model is configured.
type HeuristicReranker struct{}

func (HeuristicReranker) Rerank(_ context.Context, query string, documents []string, topK int) ([]RerankResult, error) {
	queryTokens := tokenSet(query)

	results := make([]RerankResult, len(documents))
	for i, doc := range documents {
		overlap := overlapRatio(queryTokens, tokenSet(doc))
		results[i] = RerankResult{Index: i, Score: sigmoid(overlap), Document: doc}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (HeuristicReranker) Available(_ context.Context) bool { return true }

func (HeuristicReranker) Close() error { return nil }

var _ RerankerProvider = HeuristicReranker{}

func tokenSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func overlapRatio(query, doc map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	var matched int
	for t := range query {
		if _, ok := doc[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(query))
}

// sigmoid maps a [0, 1] overlap ratio into a [0, 1] score, steepened
// around the midpoint so partial overlaps are clearly distinguishable.
func sigmoid(x float64) float64 {
	const steepness = 8.0
	return 1.0 / (1.0 + math.Exp(-steepness*(x-0.5)))
}
