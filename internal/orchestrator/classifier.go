package orchestrator

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/magray-run/agentcore/internal/config"
)

// HybridClassifier tries an injected ChatProvider first, falls back to
// PatternClassifier, and caches results by normalized text: an LLM-first,
// pattern-fallback, LRU-cached shape retargeted from query classification
// to intent classification.
type HybridClassifier struct {
	provider ChatProvider
	patterns *PatternClassifier
	cache    *lru.Cache[string, Classification]
}

// NewHybridClassifier creates a classifier that tries provider first (if
// non-nil), then falls back to keyword patterns. cacheSize<=0 falls back
// to config.DefaultOrchestratorConfig's ClassifierCacheSize.
func NewHybridClassifier(provider ChatProvider, cacheSize int) *HybridClassifier {
	if cacheSize <= 0 {
		cacheSize = config.DefaultOrchestratorConfig().ClassifierCacheSize
	}
	cache, _ := lru.New[string, Classification](cacheSize)
	return &HybridClassifier{
		provider: provider,
		patterns: NewPatternClassifier(),
		cache:    cache,
	}
}

// Classify determines intent, trying the cache, then the provider, then
// the pattern fallback, in that order.
func (h *HybridClassifier) Classify(ctx context.Context, text string) (Classification, error) {
	key := normalize(text)
	if key == "" {
		return Classification{Intent: IntentChat, Confidence: 0.5}, nil
	}

	if c, ok := h.cache.Get(key); ok {
		return c, nil
	}

	if h.provider != nil {
		if c, err := h.provider.Classify(ctx, text); err == nil {
			h.cache.Add(key, c)
			return c, nil
		}
		// provider failed: fall through to patterns
	}

	c, err := h.patterns.Classify(ctx, text)
	if err == nil {
		h.cache.Add(key, c)
	}
	return c, err
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
