package store

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

	"github.com/Aman-CERP/docindex/internal/document"
	ierrors "github.com/Aman-CERP/docindex/internal/errors"
	"github.com/Aman-CERP/docindex/pkg/version"
)

// DefaultTable is the table records are written to.
const DefaultTable = "conocimiento_agente"

// maxResponseBody caps how much of an error response is kept.
const maxResponseBody = 64 * 1024

// HTTPDoer is the subset of *http.Client the store uses.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SupabaseConfig configures the Supabase REST store.
type SupabaseConfig struct {
	// URL is the project URL, e.g. https://xyz.supabase.co
	URL string

	// APIKey is sent as both the apikey header and the bearer token
	APIKey string

	// Table is the target table (default: DefaultTable)
	Table string

	// Timeout bounds each request (0 = caller's context only)
	Timeout time.Duration

	// MatchFunction is the Postgres function Search calls (default DefaultMatchFunction)
	MatchFunction string

	// HTTPClient overrides the default client (for testing)
	HTTPClient HTTPDoer
}

// SupabaseStore inserts records through the PostgREST endpoint of a
// Supabase project.
type SupabaseStore struct {
	client      HTTPDoer
	config      SupabaseConfig
	endpoint    string
	rpcEndpoint string

	mu     sync.RWMutex
	closed bool
}

// Verify interface implementation at compile time
var (
	_ RecordStore = (*SupabaseStore)(nil)
	_ Searcher    = (*SupabaseStore)(nil)
)

// NewSupabaseStore creates a Supabase store. No request is made.
func NewSupabaseStore(cfg SupabaseConfig) (*SupabaseStore, error) {
	if cfg.URL == "" {
		return nil, ierrors.ConfigurationError("SUPABASE_URL")
	}
	if cfg.APIKey == "" {
		return nil, ierrors.ConfigurationError("SUPABASE_KEY")
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.MatchFunction == "" {
		cfg.MatchFunction = DefaultMatchFunction
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &SupabaseStore{
		client:      client,
		config:      cfg,
		endpoint:    TableURL(cfg.URL, cfg.Table),
		rpcEndpoint: RPCURL(cfg.URL, cfg.MatchFunction),
	}, nil
}

// TableURL returns the REST endpoint of table under the project URL.
func TableURL(projectURL, table string) string {
	return strings.TrimRight(projectURL, "/") + "/rest/v1/" + table
}

// RPCURL returns the REST endpoint of a Postgres function under the project URL.
func RPCURL(projectURL, function string) string {
	return strings.TrimRight(projectURL, "/") + "/rest/v1/rpc/" + function
}

// Insert posts rec as a JSON object. A transport failure or any non-2xx
// status is an ErrCodeStoreUpload error.
func (s *SupabaseStore) Insert(ctx context.Context, rec document.Record) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return ierrors.InternalError("failed to marshal record", err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return ierrors.StoreUploadError("failed to create upload request", "", err)
	}
	s.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return ierrors.StoreUploadError("upload request failed", "", err).
			WithDetail("title", rec.Title).
			WithSuggestion("Check SUPABASE_URL and network access")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		return storeStatusError(resp.StatusCode, respBody).WithDetail("title", rec.Title)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	slog.Debug("record_uploaded",
		slog.String("title", rec.Title),
		slog.Int("status", resp.StatusCode),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return nil
}

// Ping reads at most one row of the table.
func (s *SupabaseStore) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?select=*&limit=1", nil)
	if err != nil {
		return ierrors.StoreUploadError("failed to create ping request", "", err)
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return ierrors.StoreUploadError("store is unreachable", "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return storeStatusError(resp.StatusCode, respBody)
	}
	return nil
}

// matchRequest is the argument object of the match function.
type matchRequest struct {
	QueryEmbedding []float32 `json:"query_embedding"`
	MatchThreshold float64   `json:"match_threshold"`
	MatchCount     int       `json:"match_count"`
}

// Search calls the match function over RPC. The function does the ranking;
// its rows are returned as they come.
func (s *SupabaseStore) Search(ctx context.Context, query []float32, opts MatchOptions) ([]Match, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	body, err := json.Marshal(matchRequest{
		QueryEmbedding: query,
		MatchThreshold: opts.Threshold,
		MatchCount:     opts.Count,
	})
	if err != nil {
		return nil, ierrors.InternalError("failed to marshal match request", err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.rpcEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, ierrors.StoreQueryError("failed to create match request", "", err)
	}
	s.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, ierrors.StoreQueryError("match request failed", "", err).
			WithSuggestion("Check SUPABASE_URL and network access")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxMatchBody))
	if err != nil {
		return nil, ierrors.StoreQueryError("failed to read match response", "", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		qerr := ierrors.StoreQueryError(
			fmt.Sprintf("match function returned status %d", resp.StatusCode), truncateBody(respBody), nil).
			WithDetail("status", fmt.Sprintf("%d", resp.StatusCode)).
			WithDetail("function", s.config.MatchFunction)
		if resp.StatusCode == http.StatusNotFound {
			qerr.WithSuggestion("Create the " + s.config.MatchFunction + " function in the database, or set store.match_function")
		}
		return nil, qerr
	}

	var matches []Match
	if err := json.Unmarshal(respBody, &matches); err != nil {
		return nil, ierrors.StoreQueryError("match function returned an unexpected response", truncateBody(respBody), err)
	}

	slog.Debug("store_search_complete",
		slog.String("function", s.config.MatchFunction),
		slog.Int("matches", len(matches)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return matches, nil
}

// maxMatchBody caps a match response; rows carry whole documents.
const maxMatchBody = 16 * 1024 * 1024

func truncateBody(body []byte) string {
	if len(body) > maxResponseBody {
		body = body[:maxResponseBody]
	}
	return string(body)
}

func storeStatusError(status int, body []byte) *ierrors.IndexError {
	err := ierrors.StoreUploadError(
		fmt.Sprintf("store returned status %d", status), string(body), nil).
		WithDetail("status", fmt.Sprintf("%d", status))

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		err.WithSuggestion("Check SUPABASE_KEY and the table's row level security policies")
	case http.StatusNotFound:
		err.WithSuggestion("Check that the table exists and store.table is correct")
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		err.WithSuggestion("Check the table has titulo, contenido and embedding columns of matching types")
	}
	return err
}

func (s *SupabaseStore) authorize(req *http.Request) {
	req.Header.Set("apikey", s.config.APIKey)
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	req.Header.Set("User-Agent", version.UserAgent())
}

func (s *SupabaseStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout > 0 {
		return context.WithTimeout(ctx, s.config.Timeout)
	}
	return ctx, func() {}
}

func (s *SupabaseStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

// Backend returns BackendSupabase.
func (s *SupabaseStore) Backend() string {
	return BackendSupabase
}

// Close releases idle connections.
func (s *SupabaseStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if c, ok := s.client.(*http.Client); ok {
		c.CloseIdleConnections()
	}
	return nil
}
