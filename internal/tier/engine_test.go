package tier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magray-run/agentcore/internal/config"
	"github.com/magray-run/agentcore/internal/embed"
	"github.com/magray-run/agentcore/internal/record"
	"github.com/magray-run/agentcore/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.Open(config.StoreConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	e, err := NewEngine(st, embed.NewStaticEmbedder(), embed.HeuristicReranker{}, config.DefaultVectorIndexConfig(), config.DefaultTierConfig())
	require.NoError(t, err)
	return e, st
}

func TestEngine_InsertComputesEmbeddingAndPersists(t *testing.T) {
	// Given: a tier engine and a record with no embedding yet
	e, _ := newTestEngine(t)
	r := record.New("note", "hello world", nil)

	// When: it is inserted
	err := e.Insert(context.Background(), r)

	// Then: it gained a unit-dimension embedding and can be fetched back
	require.NoError(t, err)
	assert.Len(t, r.Embedding, embed.StaticDimensions)

	got, err := e.Get(context.Background(), record.Interact, r.ID.String())
	require.NoError(t, err)
	assert.Equal(t, r.Text, got.Text)
}

func TestEngine_InsertRejectsInvalidRecord(t *testing.T) {
	// Given: a tier engine and a record whose text is too large to pass validation
	e, _ := newTestEngine(t)
	r := record.New("note", "hello", nil)
	r.Text = string(make([]byte, 20<<10))

	// When: it is inserted
	err := e.Insert(context.Background(), r)

	// Then: validation rejects it before it reaches the store
	assert.Error(t, err)
}

func TestEngine_InsertBatchEmbedsAndDistributesByTier(t *testing.T) {
	// Given: a tier engine and three records across two tiers, none pre-embedded
	e, _ := newTestEngine(t)
	a := record.New("note", "alpha", nil)
	b := record.New("note", "beta", nil)
	b.Tier = record.Insights
	c := record.New("note", "gamma", nil)

	// When: they are inserted as a batch
	err := e.InsertBatch(context.Background(), []*record.Record{a, b, c})

	// Then: every record is embedded and reachable from its own tier
	require.NoError(t, err)
	for _, r := range []*record.Record{a, b, c} {
		assert.Len(t, r.Embedding, embed.StaticDimensions)
		got, err := e.Get(context.Background(), r.Tier, r.ID.String())
		require.NoError(t, err)
		assert.Equal(t, r.Text, got.Text)
	}
}

func TestEngine_DeleteRemovesFromStoreAndIndex(t *testing.T) {
	// Given: an inserted record
	e, _ := newTestEngine(t)
	r := record.New("note", "to remove", nil)
	require.NoError(t, e.Insert(context.Background(), r))

	// When: it is deleted
	err := e.Delete(context.Background(), record.Interact, r.ID.String())

	// Then: it can no longer be fetched
	require.NoError(t, err)
	_, err = e.Get(context.Background(), record.Interact, r.ID.String())
	assert.Error(t, err)
}

func TestEngine_Search_RanksLexicalOverlapHighest(t *testing.T) {
	// Given: three distinct records, one sharing a word with the query
	e, _ := newTestEngine(t)
	rust := record.New("note", "Rust programming", nil)
	python := record.New("note", "Python scripting", nil)
	bread := record.New("note", "Baking bread", nil)
	require.NoError(t, e.InsertBatch(context.Background(), []*record.Record{rust, python, bread}))

	// When: searching for "system programming language" with top_k=2
	results, err := e.Search(context.Background(), "system programming language", SearchOptions{TopK: 2})

	// Then: two results come back, the Rust record ranks first, and scores
	// are sorted descending
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, rust.ID, results[0].Record.ID)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestEngine_Search_FiltersByTag(t *testing.T) {
	// Given: two records, one tagged
	e, _ := newTestEngine(t)
	tagged := record.New("note", "important finding", nil)
	tagged.Tags["starred"] = struct{}{}
	untagged := record.New("note", "important note", nil)
	require.NoError(t, e.InsertBatch(context.Background(), []*record.Record{tagged, untagged}))

	// When: searching with a tag filter
	results, err := e.Search(context.Background(), "important", SearchOptions{TopK: 10, Tags: []string{"starred"}})

	// Then: only the tagged record is returned
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, tagged.ID, results[0].Record.ID)
}

func TestEngine_Search_FiltersByProject(t *testing.T) {
	// Given: two records in different projects
	e, _ := newTestEngine(t)
	a := record.New("note", "deploy service", nil)
	a.Project = "infra"
	b := record.New("note", "deploy service", nil)
	b.Project = "webapp"
	require.NoError(t, e.InsertBatch(context.Background(), []*record.Record{a, b}))

	// When: searching scoped to one project
	results, err := e.Search(context.Background(), "deploy service", SearchOptions{TopK: 10, Project: "infra"})

	// Then: only that project's record is returned
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, a.ID, results[0].Record.ID)
}

func TestEngine_Search_MinScoreFiltersLowRelevance(t *testing.T) {
	// Given: a record sharing nothing with the query
	e, _ := newTestEngine(t)
	r := record.New("note", "completely unrelated text", nil)
	require.NoError(t, e.Insert(context.Background(), r))

	// When: searching with a high min_score threshold
	results, err := e.Search(context.Background(), "something else entirely", SearchOptions{TopK: 10, MinScore: 0.99})

	// Then: the low-relevance result is dropped
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_Search_RestrictsToRequestedTiers(t *testing.T) {
	// Given: records in different tiers sharing the same text
	e, _ := newTestEngine(t)
	interact := record.New("note", "shared text", nil)
	insights := record.New("note", "shared text", nil)
	insights.Tier = record.Insights
	require.NoError(t, e.InsertBatch(context.Background(), []*record.Record{interact, insights}))

	// When: searching restricted to Insights only
	results, err := e.Search(context.Background(), "shared text", SearchOptions{TopK: 10, Tiers: []record.Tier{record.Insights}})

	// Then: only the Insights record is returned
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, insights.ID, results[0].Record.ID)
}

func TestEngine_Search_NoCandidatesReturnsEmpty(t *testing.T) {
	// Given: an empty engine
	e, _ := newTestEngine(t)

	// When: searching with nothing inserted
	results, err := e.Search(context.Background(), "anything", SearchOptions{TopK: 5})

	// Then: no error, no results
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_Search_TouchesAndPersistsAccessCount(t *testing.T) {
	// Given: a freshly inserted record with no recorded accesses
	e, _ := newTestEngine(t)
	r := record.New("note", "system programming language", nil)
	require.NoError(t, e.Insert(context.Background(), r))

	// When: it is returned by a search
	results, err := e.Search(context.Background(), "system programming language", SearchOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)

	// Then: its access_count is at least 1, and the bump is persisted
	assert.GreaterOrEqual(t, results[0].Record.AccessCount, uint64(1))
	got, err := e.Get(context.Background(), record.Interact, r.ID.String())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.AccessCount, uint64(1))
}

func TestEngine_Get_TouchesAndPersistsAccessCount(t *testing.T) {
	// Given: a freshly inserted record with no recorded accesses
	e, _ := newTestEngine(t)
	r := record.New("note", "hello world", nil)
	require.NoError(t, e.Insert(context.Background(), r))

	// When: it is fetched directly once
	first, err := e.Get(context.Background(), record.Interact, r.ID.String())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.AccessCount)

	// Then: a second fetch observes the persisted bump and adds its own
	second, err := e.Get(context.Background(), record.Interact, r.ID.String())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.AccessCount)
}

type stubPromoter struct {
	called bool
	result any
	err    error
}

func (s *stubPromoter) RunCycle(ctx context.Context) (any, error) {
	s.called = true
	return s.result, s.err
}

func TestEngine_RunPromotionCycle_DelegatesToPromoter(t *testing.T) {
	// Given: an engine with a stub promoter installed
	e, _ := newTestEngine(t)
	promoter := &stubPromoter{result: "done"}
	e.SetPromoter(promoter)

	// When: a promotion cycle is run
	result, err := e.RunPromotionCycle(context.Background())

	// Then: the promoter was invoked and its result passed through
	require.NoError(t, err)
	assert.True(t, promoter.called)
	assert.Equal(t, "done", result)
}

func TestEngine_RunPromotionCycle_ErrorsWithoutPromoter(t *testing.T) {
	// Given: an engine with no promoter installed
	e, _ := newTestEngine(t)

	// When/Then: running a cycle errors instead of panicking
	_, err := e.RunPromotionCycle(context.Background())
	assert.Error(t, err)
}
