//go:build fastembed

package embed

import (
	"context"
	"fmt"
	"sync"

	fastembed "github.com/anush008/fastembed-go"

	"github.com/magray-run/agentcore/internal/config"
)

// FastEmbedProvider wraps anush008/fastembed-go, an ONNX-runtime-backed
// embedder. Only compiled into binaries built with -tags fastembed; the
// default build links fastembed_stub.go instead so the onnxruntime shared
// library is never a hard runtime dependency.
type FastEmbedProvider struct {
	mu     sync.RWMutex
	model  *fastembed.FlagEmbedding
	dim    int
	closed bool
}

// NewFastEmbedProvider initializes the fastembed model named in cfg.
func NewFastEmbedProvider(_ context.Context, cfg config.EmbeddingConfig) (Embedder, error) {
	init := &fastembed.InitOptions{
		Model: fastembed.BGESmallENV15,
	}
	m, err := fastembed.NewFlagEmbedding(init)
	if err != nil {
		return nil, fmt.Errorf("fastembed: initialize model: %w", err)
	}

	dim := cfg.Dimensions
	if dim <= 0 {
		dim = 384 // bge-small-en-v1.5 output dimension
	}
	return &FastEmbedProvider{model: m, dim: dim}, nil
}

func (p *FastEmbedProvider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, fmt.Errorf("fastembed: provider closed")
	}
	vec, err := p.model.QueryEmbed(text)
	if err != nil {
		return nil, fmt.Errorf("fastembed: embed: %w", err)
	}
	return vec, nil
}

func (p *FastEmbedProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, fmt.Errorf("fastembed: provider closed")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vecs, err := p.model.PassageEmbed(texts, len(texts))
	if err != nil {
		return nil, fmt.Errorf("fastembed: embed batch: %w", err)
	}
	return vecs, nil
}

func (p *FastEmbedProvider) Dimensions() int { return p.dim }

func (p *FastEmbedProvider) ModelName() string { return "fastembed:bge-small-en-v1.5" }

func (p *FastEmbedProvider) Available(_ context.Context) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed
}

func (p *FastEmbedProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.model != nil {
		p.model.Destroy()
	}
	return nil
}

var _ Embedder = (*FastEmbedProvider)(nil)
