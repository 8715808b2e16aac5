package embed

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Aman-CERP/docindex/internal/config"
)

// ProviderType represents an embedding provider
type ProviderType string

const (
	// ProviderHuggingFace uses the hosted inference API (default)
	ProviderHuggingFace ProviderType = config.ProviderHuggingFace

	// ProviderStatic uses hash-based embeddings with no network
	ProviderStatic ProviderType = config.ProviderStatic
)

// NewEmbedder creates the embedder selected by cfg.Provider.
// An empty provider selects Hugging Face.
func NewEmbedder(cfg config.EmbeddingsConfig) (Embedder, error) {
	provider := ProviderType(strings.ToLower(cfg.Provider))
	if provider == "" {
		provider = ProviderHuggingFace
	}

	switch provider {
	case ProviderHuggingFace:
		e, err := NewHuggingFaceEmbedder(HuggingFaceConfig{
			BaseURL:      cfg.BaseURL,
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			WaitForModel: true,
			Timeout:      cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		slog.Debug("embedder_selected",
			slog.String("provider", string(provider)),
			slog.String("model", e.ModelName()))
		return e, nil

	case ProviderStatic:
		slog.Debug("embedder_selected", slog.String("provider", string(provider)))
		return NewStaticEmbedder(), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
