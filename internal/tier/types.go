// Package tier implements the engine that is the only public entry point
// for record CRUD and search: insert/insert_batch/search/delete/get, plus
// promotion-cycle delegation. Search is a two-stage retrieval — approximate
// candidates from the vector index, then exact rerank over rehydrated
// text — fanned out across tiers concurrently via golang.org/x/sync/errgroup.
package tier

import (
	"context"

	"github.com/magray-run/agentcore/internal/record"
)

// SearchOptions narrows a search to specific tiers, tags, or a project, and
// bounds how many results come back.
type SearchOptions struct {
	// Tiers restricts the search to these tiers. Empty means all three.
	Tiers []record.Tier
	// TopK is the number of results to return after rerank. <= 0 uses
	// DefaultTopK.
	TopK int
	// MinScore drops rerank results scoring below this threshold. Zero
	// disables the filter.
	MinScore float64
	// Tags restricts results to records carrying every listed tag.
	Tags []string
	// Project restricts results to this project scope. Empty means any.
	Project string
}

// DefaultTopK is used when SearchOptions.TopK is unset.
const DefaultTopK = 10

// SearchResult pairs a rehydrated record with its rerank score.
type SearchResult struct {
	Record *record.Record
	Score  float64
}

// Promoter runs one promotion-engine cycle. The tier engine delegates
// run_promotion_cycle to it without depending on the promotion engine's
// concrete stats type, keeping the two components decoupled: the
// composition root wires the concrete *promotion.Engine in and knows how
// to interpret what RunCycle returns.
type Promoter interface {
	RunCycle(ctx context.Context) (any, error)
}
