//go:build !fastembed

package embed

import (
	"context"
	"errors"

	"github.com/magray-run/agentcore/internal/config"
	agenterrors "github.com/magray-run/agentcore/internal/errors"
)

// NewFastEmbedProvider is the default-build stand-in for fastembed.go. It
// always returns EmbeddingUnavailable so a binary built without -tags
// fastembed never depends on the onnxruntime shared library.
func NewFastEmbedProvider(_ context.Context, _ config.EmbeddingConfig) (Embedder, error) {
	return nil, agenterrors.EmbeddingUnavailable(errors.New("fastembed support not included; rebuild with -tags fastembed")).
		WithDetail("hint", "rebuild with -tags fastembed to enable this provider")
}
