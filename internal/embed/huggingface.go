package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	ierrors "github.com/Aman-CERP/docindex/internal/errors"
	"github.com/Aman-CERP/docindex/pkg/version"
)

// HTTPDoer is the subset of *http.Client the remote clients use.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 64 * 1024

// HuggingFaceEmbedder generates embeddings with the Hugging Face
// feature-extraction pipeline, one document per request.
type HuggingFaceEmbedder struct {
	client   HTTPDoer
	config   HuggingFaceConfig
	endpoint string

	mu     sync.RWMutex
	dims   int
	closed bool
}

// Verify interface implementation at compile time
var _ Embedder = (*HuggingFaceEmbedder)(nil)

// NewHuggingFaceEmbedder creates a Hugging Face embedder. No request is made.
func NewHuggingFaceEmbedder(cfg HuggingFaceConfig) (*HuggingFaceEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, ierrors.ConfigurationError("HUGGINGFACE_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultHFBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultHFModel
	}

	client := cfg.HTTPClient
	if client == nil {
		// No client-level Timeout: it would override the per-request context.
		client = &http.Client{}
	}

	return &HuggingFaceEmbedder{
		client:   client,
		config:   cfg,
		endpoint: FeatureExtractionURL(cfg.BaseURL, cfg.Model),
		dims:     DefaultHFDimensions,
	}, nil
}

// FeatureExtractionURL returns the pipeline endpoint for model.
func FeatureExtractionURL(baseURL, model string) string {
	return strings.TrimRight(baseURL, "/") + "/pipeline/feature-extraction/" + model
}

// Embed requests the embedding of text. Any non-2xx status, transport
// failure or body that is not a flat, non-empty array of numbers is an
// ErrCodeEmbeddingService error.
func (e *HuggingFaceEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(featureExtractionRequest{
		Inputs:  text,
		Options: featureExtractionOptions{WaitForModel: e.config.WaitForModel},
	})
	if err != nil {
		return nil, ierrors.InternalError("failed to marshal embedding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, ierrors.EmbeddingServiceError("failed to create embedding request", "", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, ierrors.EmbeddingServiceError("embedding request failed", "", err).
			WithSuggestion("Check network access to " + e.config.BaseURL)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody*16))
	if err != nil {
		return nil, ierrors.EmbeddingServiceError("failed to read embedding response", "", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, embeddingStatusError(resp.StatusCode, respBody)
	}

	embedding, err := decodeEmbedding(respBody)
	if err != nil {
		return nil, ierrors.EmbeddingServiceError("unexpected embedding response", clip(respBody), err)
	}

	e.mu.Lock()
	e.dims = len(embedding)
	e.mu.Unlock()

	slog.Debug("embedding_received",
		slog.String("model", e.config.Model),
		slog.Int("dimensions", len(embedding)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return embedding, nil
}

// decodeEmbedding parses a flat JSON array of numbers.
func decodeEmbedding(body []byte) ([]float32, error) {
	var embedding []float32
	if err := json.Unmarshal(body, &embedding); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}
	return embedding, nil
}

func embeddingStatusError(status int, body []byte) error {
	err := ierrors.EmbeddingServiceError(
		fmt.Sprintf("embedding service returned status %d", status), clip(body), nil).
		WithDetail("status", fmt.Sprintf("%d", status))

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		err.WithSuggestion("Check that HUGGINGFACE_KEY is a valid access token")
	case http.StatusNotFound:
		err.WithSuggestion("Check embeddings.model and embeddings.base_url")
	case http.StatusServiceUnavailable:
		err.WithSuggestion("The model is loading or overloaded; run again later")
	}
	return err
}

// clip returns body as text, capped at maxErrorBody bytes.
func clip(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(body)
}

// Dimensions returns the size of the last embedding received, or the
// model's documented size before the first request.
func (e *HuggingFaceEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

// ModelName returns the model identifier
func (e *HuggingFaceEmbedder) ModelName() string {
	return e.config.Model
}

// Available embeds a short sample text.
func (e *HuggingFaceEmbedder) Available(ctx context.Context) bool {
	_, err := e.Verify(ctx)
	return err == nil
}

// Verify embeds a short text and returns the vector size, or the error the
// service produced.
func (e *HuggingFaceEmbedder) Verify(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultVerifyTimeout)
	defer cancel()

	emb, err := e.Embed(ctx, "ping")
	if err != nil {
		return 0, err
	}
	return len(emb), nil
}

// Close releases resources
func (e *HuggingFaceEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	if c, ok := e.client.(*http.Client); ok {
		c.CloseIdleConnections()
	}
	return nil
}
