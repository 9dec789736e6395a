package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/magray-run/agentcore/internal/config"
)

// ProviderType identifies which concrete Embedder a factory call selects.
type ProviderType string

const (
	// ProviderStatic is the deterministic hash-based embedder. Always
	// available; never fails.
	ProviderStatic ProviderType = "static"
	// ProviderFastEmbed wraps anush008/fastembed-go. Only usable in
	// binaries built with -tags fastembed.
	ProviderFastEmbed ProviderType = "fastembed"
)

// ParseProvider converts a string to a ProviderType, defaulting to static
// for anything unrecognized.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(s) {
	case "fastembed":
		return ProviderFastEmbed
	default:
		return ProviderStatic
	}
}

// NewEmbedder builds an Embedder from cfg, wrapping it with an LRU cache
// unless caching is disabled. Static is the only provider guaranteed to
// succeed; FastEmbed requires the fastembed build tag and returns
// an EmbeddingUnavailable error otherwise (see fastembed_stub.go).
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (Embedder, error) {
	var embedder Embedder
	var err error

	switch ParseProvider(cfg.Provider) {
	case ProviderFastEmbed:
		embedder, err = NewFastEmbedProvider(ctx, cfg)
	default:
		embedder = NewStaticEmbedder()
	}
	if err != nil {
		return nil, fmt.Errorf("embed: build provider %q: %w", cfg.Provider, err)
	}

	if cfg.CacheEnabled {
		embedder = NewCachedEmbedder(embedder, cfg.CacheSize)
	}
	return embedder, nil
}

// MustNewEmbedder builds an embedder and panics on failure. Intended for
// tests and startup code paths where failure should abort the process.
func MustNewEmbedder(ctx context.Context, cfg config.EmbeddingConfig) Embedder {
	embedder, err := NewEmbedder(ctx, cfg)
	if err != nil {
		panic(fmt.Sprintf("embed: failed to create embedder: %v", err))
	}
	return embedder
}
