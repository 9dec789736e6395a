package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedder_Embed(t *testing.T) {
	t.Run("given plain text, when embedding, then returns unit-length vector of StaticDimensions", func(t *testing.T) {
		e := NewStaticEmbedder()

		vec, err := e.Embed(context.Background(), "the quick brown fox")

		require.NoError(t, err)
		assert.Len(t, vec, StaticDimensions)

		var sumSquares float64
		for _, v := range vec {
			sumSquares += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, sumSquares, 1e-4)
	})

	t.Run("given empty text, when embedding, then returns zero vector without error", func(t *testing.T) {
		e := NewStaticEmbedder()

		vec, err := e.Embed(context.Background(), "   ")

		require.NoError(t, err)
		require.Len(t, vec, StaticDimensions)
		for _, v := range vec {
			assert.Equal(t, float32(0), v)
		}
	})

	t.Run("given the same text twice, when embedding, then results are deterministic", func(t *testing.T) {
		e := NewStaticEmbedder()

		a, err := e.Embed(context.Background(), "camelCase_mixedToken")
		require.NoError(t, err)
		b, err := e.Embed(context.Background(), "camelCase_mixedToken")
		require.NoError(t, err)

		assert.Equal(t, a, b)
	})

	t.Run("given different texts, when embedding, then vectors differ", func(t *testing.T) {
		e := NewStaticEmbedder()

		a, err := e.Embed(context.Background(), "hello world")
		require.NoError(t, err)
		b, err := e.Embed(context.Background(), "goodbye moon")
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
	})

	t.Run("given a closed embedder, when embedding, then returns error", func(t *testing.T) {
		e := NewStaticEmbedder()
		require.NoError(t, e.Close())

		_, err := e.Embed(context.Background(), "anything")

		assert.Error(t, err)
	})
}

func TestStaticEmbedder_EmbedBatch(t *testing.T) {
	t.Run("given multiple texts, when batch embedding, then returns one vector per text in order", func(t *testing.T) {
		e := NewStaticEmbedder()

		vecs, err := e.EmbedBatch(context.Background(), []string{"alpha", "beta", "gamma"})

		require.NoError(t, err)
		require.Len(t, vecs, 3)

		single, err := e.Embed(context.Background(), "beta")
		require.NoError(t, err)
		assert.Equal(t, single, vecs[1])
	})

	t.Run("given no texts, when batch embedding, then returns an empty slice", func(t *testing.T) {
		e := NewStaticEmbedder()

		vecs, err := e.EmbedBatch(context.Background(), nil)

		require.NoError(t, err)
		assert.Empty(t, vecs)
	})
}

func TestStaticEmbedder_Metadata(t *testing.T) {
	e := NewStaticEmbedder()

	assert.Equal(t, StaticDimensions, e.Dimensions())
	assert.Equal(t, "static", e.ModelName())
	assert.True(t, e.Available(context.Background()))

	require.NoError(t, e.Close())
	assert.False(t, e.Available(context.Background()))
}

func TestTokenize_LowercasesAndFiltersStopWords(t *testing.T) {
	tokens := filterStopWords(tokenize("The Quick Brown Fox is in the Garden"))

	assert.Equal(t, []string{"quick", "brown", "fox", "garden"}, tokens)
}

func TestExtractNgrams(t *testing.T) {
	t.Run("given text shorter than n, when extracting ngrams, then returns empty slice", func(t *testing.T) {
		assert.Equal(t, []string{}, extractNgrams("ab", 3))
	})

	t.Run("given text at least n long, when extracting ngrams, then returns sliding windows", func(t *testing.T) {
		assert.Equal(t, []string{"abc", "bcd"}, extractNgrams("abcd", 3))
	})
}
