package tier

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/magray-run/agentcore/internal/config"
	"github.com/magray-run/agentcore/internal/embed"
	"github.com/magray-run/agentcore/internal/record"
	"github.com/magray-run/agentcore/internal/store"
	"github.com/magray-run/agentcore/internal/vectorindex"
)

// orderedTiers fixes the Interact→Insights→Assets iteration order any
// multi-tier operation follows, matching the fixed lock-acquisition order
// the concurrency model requires for cross-tier operations.
var orderedTiers = []record.Tier{record.Interact, record.Insights, record.Assets}

// Engine is the sole entry point for record CRUD and search. It owns one
// vector index and one persistent store per tier, a shared embedder and
// reranker, and an optional promotion-engine delegate.
type Engine struct {
	stores   map[record.Tier]store.TierStore
	indices  map[record.Tier]vectorindex.Index
	embedder embed.Embedder
	reranker embed.RerankerProvider
	promoter Promoter
	cfg      config.TierConfig
}

// NewEngine builds the per-tier vector indices from vecCfg and binds them
// to the already-open store.Store, ready for Insert/Search/Delete/Get.
func NewEngine(
	st *store.Store,
	embedder embed.Embedder,
	reranker embed.RerankerProvider,
	vecCfg config.VectorIndexConfig,
	tierCfg config.TierConfig,
) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("tier: store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("tier: embedder is required")
	}
	if reranker == nil {
		reranker = embed.NoOpReranker{}
	}

	e := &Engine{
		stores:   make(map[record.Tier]store.TierStore, len(orderedTiers)),
		indices:  make(map[record.Tier]vectorindex.Index, len(orderedTiers)),
		embedder: embedder,
		reranker: reranker,
		cfg:      tierCfg,
	}

	idxCfg := vectorindex.FromGlobal(embedder.Dimensions(), vecCfg)
	for _, tier := range orderedTiers {
		ts, err := st.Tier(tier)
		if err != nil {
			return nil, fmt.Errorf("tier: bind store for %s: %w", tier, err)
		}
		e.stores[tier] = ts
		e.indices[tier] = vectorindex.NewHybridIndex(idxCfg)
	}
	return e, nil
}

// SetPromoter installs the promotion-engine delegate used by
// RunPromotionCycle. Separate from NewEngine so the composition root can
// build the tier engine and promotion engine in either order.
func (e *Engine) SetPromoter(p Promoter) {
	e.promoter = p
}

// Insert embeds r's text if it has no embedding yet, adds it to its tier's
// vector index, and persists it to the tier's store.
func (e *Engine) Insert(ctx context.Context, r *record.Record) error {
	if err := e.ensureEmbedding(ctx, r); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}

	ts, idx, err := e.tierHandles(r.Tier)
	if err != nil {
		return err
	}
	if err := ts.Put(ctx, r); err != nil {
		return err
	}
	return idx.Add([]string{r.ID.String()}, [][]float32{r.Embedding})
}

// InsertBatch inserts every record, batch-embedding those missing a vector
// for efficiency. Per-record failures are collected and returned together;
// records that succeeded remain inserted.
func (e *Engine) InsertBatch(ctx context.Context, records []*record.Record) error {
	var toEmbed []*record.Record
	var texts []string
	for _, r := range records {
		if len(r.Embedding) == 0 {
			toEmbed = append(toEmbed, r)
			texts = append(texts, r.Text)
		}
	}
	if len(toEmbed) > 0 {
		vectors, err := e.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("tier: batch embed: %w", err)
		}
		for i, r := range toEmbed {
			r.Embedding = vectors[i]
		}
	}

	byTier := make(map[record.Tier][]*record.Record)
	for _, r := range records {
		byTier[r.Tier] = append(byTier[r.Tier], r)
	}

	var errs []error
	for tier, group := range byTier {
		ts, idx, err := e.tierHandles(tier)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ids := make([]string, 0, len(group))
		vecs := make([][]float32, 0, len(group))
		for _, r := range group {
			if err := r.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("record %s: %w", r.ID, err))
				continue
			}
			if err := ts.Put(ctx, r); err != nil {
				errs = append(errs, fmt.Errorf("record %s: %w", r.ID, err))
				continue
			}
			ids = append(ids, r.ID.String())
			vecs = append(vecs, r.Embedding)
		}
		if len(ids) > 0 {
			if err := idx.Add(ids, vecs); err != nil {
				errs = append(errs, fmt.Errorf("tier %s: index add: %w", tier, err))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("tier: insert_batch: %v", errs)
	}
	return nil
}

func (e *Engine) ensureEmbedding(ctx context.Context, r *record.Record) error {
	if len(r.Embedding) > 0 {
		return nil
	}
	vec, err := e.embedder.Embed(ctx, r.Text)
	if err != nil {
		return fmt.Errorf("tier: embed record: %w", err)
	}
	r.Embedding = vec
	return nil
}

func (e *Engine) tierHandles(tier record.Tier) (store.TierStore, vectorindex.Index, error) {
	ts, ok := e.stores[tier]
	if !ok {
		return nil, nil, fmt.Errorf("tier: unknown tier %s", tier)
	}
	return ts, e.indices[tier], nil
}

// Delete removes a record from its tier's store and vector index.
func (e *Engine) Delete(ctx context.Context, tier record.Tier, id string) error {
	ts, idx, err := e.tierHandles(tier)
	if err != nil {
		return err
	}
	if err := ts.Delete(ctx, id); err != nil {
		return err
	}
	return idx.Remove([]string{id})
}

// Get returns one record by tier and id, recording the access.
func (e *Engine) Get(ctx context.Context, tier record.Tier, id string) (*record.Record, error) {
	ts, ok := e.stores[tier]
	if !ok {
		return nil, fmt.Errorf("tier: unknown tier %s", tier)
	}
	r, err := ts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Touch()
	if err := ts.Put(ctx, r); err != nil {
		return nil, fmt.Errorf("tier: persist access: %w", err)
	}
	return r, nil
}

// RunPromotionCycle delegates to the installed Promoter. Returns an error
// if no promoter has been set.
func (e *Engine) RunPromotionCycle(ctx context.Context) (any, error) {
	if e.promoter == nil {
		return nil, fmt.Errorf("tier: no promoter installed")
	}
	return e.promoter.RunCycle(ctx)
}

// candidateCount computes N = max(top_k * CandidateMultiplier, CandidateFloor).
func (e *Engine) candidateCount(topK int) int {
	n := topK * e.cfg.CandidateMultiplier
	if n < e.cfg.CandidateFloor {
		n = e.cfg.CandidateFloor
	}
	return n
}

func (e *Engine) searchTiers(opts SearchOptions) []record.Tier {
	if len(opts.Tiers) == 0 {
		return orderedTiers
	}
	requested := make(map[record.Tier]bool, len(opts.Tiers))
	for _, t := range opts.Tiers {
		requested[t] = true
	}
	var out []record.Tier
	for _, t := range orderedTiers {
		if requested[t] {
			out = append(out, t)
		}
	}
	return out
}

// Search fans out across the requested tiers, merges and dedupes
// candidates by id, rehydrates their text, reranks on (query, text), and
// returns the top_k results after the min_score filter.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("tier: embed query: %w", err)
	}

	n := e.candidateCount(topK)
	tiers := e.searchTiers(opts)

	type tierHit struct {
		tier  record.Tier
		id    string
		score float32
	}

	hits := make([][]tierHit, len(tiers))
	g, gctx := errgroup.WithContext(ctx)
	_ = gctx // per-tier vector search does not need cancellation propagation; every tier's search runs to completion
	for i, tier := range tiers {
		i, tier := i, tier
		g.Go(func() error {
			idx := e.indices[tier]
			results, err := idx.Search(queryVec, n)
			if err != nil {
				return nil // graceful degradation: a failing tier yields no candidates, not a hard error
			}
			out := make([]tierHit, len(results))
			for j, res := range results {
				out[j] = tierHit{tier: tier, id: res.ID, score: res.Score}
			}
			hits[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]record.Tier)
	for _, group := range hits {
		for _, h := range group {
			if _, exists := merged[h.id]; !exists {
				merged[h.id] = h.tier
			}
		}
	}

	var candidates []*record.Record
	for id, tier := range merged {
		ts := e.stores[tier]
		r, err := ts.Get(ctx, id)
		if err != nil {
			continue // rehydration failure: the candidate is dropped, not fatal to the search
		}
		if !matchesFilters(r, opts) {
			continue
		}
		candidates = append(candidates, r)
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	texts := make([]string, len(candidates))
	for i, r := range candidates {
		texts[i] = r.Text
	}
	reranked, err := e.reranker.Rerank(ctx, query, texts, topK)
	if err != nil {
		return nil, fmt.Errorf("tier: rerank: %w", err)
	}

	results := make([]SearchResult, 0, len(reranked))
	for _, rr := range reranked {
		if opts.MinScore > 0 && rr.Score < opts.MinScore {
			continue
		}
		r := candidates[rr.Index]
		results = append(results, SearchResult{Record: r, Score: rr.Score})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	for _, res := range results {
		res.Record.Touch()
		ts := e.stores[res.Record.Tier]
		if err := ts.Put(ctx, res.Record); err != nil {
			return nil, fmt.Errorf("tier: persist access: %w", err)
		}
	}

	return results, nil
}

func matchesFilters(r *record.Record, opts SearchOptions) bool {
	if opts.Project != "" && r.Project != opts.Project {
		return false
	}
	for _, tag := range opts.Tags {
		if _, ok := r.Tags[tag]; !ok {
			return false
		}
	}
	return true
}
