package index

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docindex/internal/document"
	"github.com/Aman-CERP/docindex/internal/embed"
	ierrors "github.com/Aman-CERP/docindex/internal/errors"
	"github.com/Aman-CERP/docindex/internal/store"
	"github.com/Aman-CERP/docindex/internal/ui"
)

// MockRenderer implements ui.Renderer for testing.
type MockRenderer struct {
	StartCalled     bool
	StopCalled      bool
	CompleteCalled  bool
	ProgressEvents  []ui.ProgressEvent
	FileEvents      []ui.FileEvent
	ErrorEvents     []ui.ErrorEvent
	CompletionStats ui.CompletionStats
}

func (m *MockRenderer) Start(ctx context.Context) error {
	m.StartCalled = true
	return nil
}

func (m *MockRenderer) UpdateProgress(event ui.ProgressEvent) {
	m.ProgressEvents = append(m.ProgressEvents, event)
}

func (m *MockRenderer) FileIndexed(event ui.FileEvent) {
	m.FileEvents = append(m.FileEvents, event)
}

func (m *MockRenderer) AddError(event ui.ErrorEvent) {
	m.ErrorEvents = append(m.ErrorEvents, event)
}

func (m *MockRenderer) Complete(stats ui.CompletionStats) {
	m.CompleteCalled = true
	m.CompletionStats = stats
}

func (m *MockRenderer) Stop() error {
	m.StopCalled = true
	return nil
}

// MockEmbedder returns a fixed vector and fails for configured texts.
type MockEmbedder struct {
	Vector []float32
	FailOn map[string]error
	Calls  []string
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.Calls = append(m.Calls, text)
	if err, ok := m.FailOn[text]; ok {
		return nil, err
	}
	return m.Vector, nil
}

func (m *MockEmbedder) Dimensions() int                  { return len(m.Vector) }
func (m *MockEmbedder) ModelName() string                { return "mock-model" }
func (m *MockEmbedder) Available(_ context.Context) bool { return true }
func (m *MockEmbedder) Close() error                     { return nil }

// MockStore keeps inserted records and fails for configured titles.
type MockStore struct {
	Records []document.Record
	FailOn  map[string]error
}

func (m *MockStore) Insert(_ context.Context, rec document.Record) error {
	if err, ok := m.FailOn[rec.Title]; ok {
		return err
	}
	m.Records = append(m.Records, rec)
	return nil
}

func (m *MockStore) Ping(_ context.Context) error { return nil }
func (m *MockStore) Backend() string              { return "mock" }
func (m *MockStore) Close() error                 { return nil }

// writeDocs creates name → content files in a fresh directory. HOME is
// moved to a temp dir so run locks stay out of the real one.
func writeDocs(t *testing.T, files map[string]string) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newMockRunner(t *testing.T, emb embed.Embedder, st store.RecordStore) (*Runner, *MockRenderer) {
	t.Helper()
	renderer := &MockRenderer{}
	r, err := NewRunner(RunnerDependencies{Renderer: renderer, Embedder: emb, Store: st})
	require.NoError(t, err)
	return r, renderer
}

// fakeServices runs an inference service and a REST store on one httptest server.
type fakeServices struct {
	server       *httptest.Server
	embedStatus  int
	embedBody    string
	embedCalls   atomic.Int32
	mu           sync.Mutex
	uploadBodies []string
}

func newFakeServices(t *testing.T, embedStatus int, embedBody string) *fakeServices {
	t.Helper()
	f := &fakeServices{embedStatus: embedStatus, embedBody: embedBody}

	mux := http.NewServeMux()
	mux.HandleFunc("/pipeline/feature-extraction/", func(w http.ResponseWriter, r *http.Request) {
		f.embedCalls.Add(1)
		w.WriteHeader(f.embedStatus)
		_, _ = w.Write([]byte(f.embedBody))
	})
	mux.HandleFunc("/rest/v1/conocimiento_agente", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.uploadBodies = append(f.uploadBodies, string(raw))
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeServices) uploads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.uploadBodies...)
}

func (f *fakeServices) runner(t *testing.T) (*Runner, *MockRenderer) {
	t.Helper()
	emb, err := embed.NewHuggingFaceEmbedder(embed.HuggingFaceConfig{
		BaseURL:      f.server.URL,
		APIKey:       "hf_test",
		Model:        embed.DefaultHFModel,
		WaitForModel: true,
	})
	require.NoError(t, err)
	st, err := store.NewSupabaseStore(store.SupabaseConfig{URL: f.server.URL, APIKey: "sb_test"})
	require.NoError(t, err)
	return newMockRunner(t, emb, st)
}

func TestNewRunner_RequiresDependencies(t *testing.T) {
	renderer := &MockRenderer{}
	emb := &MockEmbedder{}
	st := &MockStore{}

	tests := []struct {
		name string
		deps RunnerDependencies
	}{
		{"no renderer", RunnerDependencies{Embedder: emb, Store: st}},
		{"no embedder", RunnerDependencies{Renderer: renderer, Store: st}},
		{"no store", RunnerDependencies{Renderer: renderer, Embedder: emb}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRunner(tt.deps)
			assert.Error(t, err)
			assert.Nil(t, r)
		})
	}
}

func TestRunner_Run_UploadsExactRecord(t *testing.T) {
	// Given: a.txt containing "hello" and a service returning [0.1, 0.2, 0.3]
	dir := writeDocs(t, map[string]string{"a.txt": "hello"})
	services := newFakeServices(t, http.StatusOK, `[0.1, 0.2, 0.3]`)
	r, renderer := services.runner(t)

	// When: running
	summary, err := r.Run(context.Background(), RunnerConfig{Dir: dir})

	// Then: the store receives exactly one record with the wire field names
	require.NoError(t, err)
	assert.Equal(t, []string{`{"titulo":"a.txt","contenido":"hello","embedding":[0.1,0.2,0.3]}`}, services.uploads())
	assert.Equal(t, 1, summary.Indexed)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, StatusIndexed, summary.Results[0].Status)
	assert.Equal(t, 3, summary.Results[0].Dimensions)
	require.Len(t, renderer.FileEvents, 1)
	assert.Equal(t, "a.txt", renderer.FileEvents[0].File)
}

func TestRunner_Run_EmbeddingFailureUploadsNothing(t *testing.T) {
	// Given: an inference service answering 500
	dir := writeDocs(t, map[string]string{"a.txt": "hello"})
	services := newFakeServices(t, http.StatusInternalServerError, `{"error":"model overloaded"}`)
	r, renderer := services.runner(t)

	// When: running
	summary, err := r.Run(context.Background(), RunnerConfig{Dir: dir})

	// Then: the file fails with an embedding service error and nothing is uploaded
	require.Error(t, err)
	assert.True(t, ierrors.HasCode(err, ierrors.ErrCodeEmbeddingService))
	assert.Empty(t, services.uploads())
	assert.Equal(t, int32(1), services.embedCalls.Load())

	require.Len(t, summary.Results, 1)
	assert.Equal(t, StatusFailed, summary.Results[0].Status)
	var ie *ierrors.IndexError
	require.ErrorAs(t, summary.Results[0].Err, &ie)
	assert.Contains(t, ie.Details["body"], "model overloaded")

	require.Len(t, renderer.ErrorEvents, 1)
	assert.Empty(t, renderer.FileEvents)
}

func TestRunner_Run_EmptyDirectoryMakesNoCalls(t *testing.T) {
	// Given: a directory without .txt files
	dir := writeDocs(t, map[string]string{"notes.md": "# skipped"})
	services := newFakeServices(t, http.StatusOK, `[0.1]`)
	r, renderer := services.runner(t)

	// When: running
	summary, err := r.Run(context.Background(), RunnerConfig{Dir: dir})

	// Then: success with zero network calls
	require.NoError(t, err)
	assert.Zero(t, summary.Discovered)
	assert.Zero(t, services.embedCalls.Load())
	assert.Empty(t, services.uploads())
	assert.True(t, renderer.CompleteCalled)
}

func TestRunner_Run_MissingDirectoryIsCreated(t *testing.T) {
	// Given: a documents directory that does not exist
	dir := filepath.Join(t.TempDir(), "documentos")
	emb := &MockEmbedder{Vector: []float32{1}}
	r, renderer := newMockRunner(t, emb, &MockStore{})

	// When: running with CreateIfMissing
	summary, err := r.Run(context.Background(), RunnerConfig{Dir: dir, CreateIfMissing: true})

	// Then: the directory exists and the run ends early
	require.NoError(t, err)
	assert.True(t, summary.Created)
	assert.DirExists(t, dir)
	assert.Empty(t, emb.Calls)
	assert.False(t, renderer.CompleteCalled)
}

func TestRunner_Run_MissingDirectoryFails(t *testing.T) {
	// Given: a documents directory that does not exist
	dir := filepath.Join(t.TempDir(), "documentos")
	r, _ := newMockRunner(t, &MockEmbedder{}, &MockStore{})

	// When: running without CreateIfMissing
	summary, err := r.Run(context.Background(), RunnerConfig{Dir: dir})

	// Then: a directory error is returned
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.True(t, ierrors.HasCode(err, ierrors.ErrCodeDirUnreadable))
}

func TestRunner_Run_NormalizesContent(t *testing.T) {
	// Given: a file with surrounding whitespace and CRLF line breaks
	dir := writeDocs(t, map[string]string{"saludo.TXT": "  Hola\r\nMundo \r\n"})
	emb := &MockEmbedder{Vector: []float32{0.5}}
	st := &MockStore{}
	r, _ := newMockRunner(t, emb, st)

	// When: running
	_, err := r.Run(context.Background(), RunnerConfig{Dir: dir})

	// Then: the embedded and stored content is normalized
	require.NoError(t, err)
	assert.Equal(t, []string{"Hola\nMundo"}, emb.Calls)
	require.Len(t, st.Records, 1)
	assert.Equal(t, document.Record{Title: "saludo.TXT", Content: "Hola\nMundo", Embedding: []float32{0.5}}, st.Records[0])
}

func TestRunner_Run_FailFastStopsAtFirstFailure(t *testing.T) {
	// Given: three files where the second cannot be embedded
	dir := writeDocs(t, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})
	embedErr := ierrors.EmbeddingServiceError("embedding request failed", "", errors.New("boom"))
	emb := &MockEmbedder{Vector: []float32{1, 2}, FailOn: map[string]error{"b": embedErr}}
	st := &MockStore{}
	r, renderer := newMockRunner(t, emb, st)

	// When: running fail-fast in name order
	summary, err := r.Run(context.Background(), RunnerConfig{Dir: dir, Sort: true, Policy: PolicyFailFast})

	// Then: the run stops after b.txt and returns its error
	require.Error(t, err)
	assert.ErrorIs(t, err, embedErr)
	assert.Equal(t, []string{"a", "b"}, emb.Calls)
	assert.Len(t, st.Records, 1)
	assert.Equal(t, 3, summary.Discovered)
	assert.Equal(t, 1, summary.Indexed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.NotAttempted())
	assert.True(t, summary.Aborted)
	assert.True(t, renderer.CompletionStats.Aborted)
}

func TestRunner_Run_FailFastOnLastFileIsNotAborted(t *testing.T) {
	// Given: the last file fails
	dir := writeDocs(t, map[string]string{"a.txt": "a", "b.txt": "b"})
	emb := &MockEmbedder{Vector: []float32{1}, FailOn: map[string]error{"b": errors.New("boom")}}
	r, _ := newMockRunner(t, emb, &MockStore{})

	// When: running fail-fast
	summary, err := r.Run(context.Background(), RunnerConfig{Dir: dir, Sort: true})

	// Then: nothing was left unattempted
	require.Error(t, err)
	assert.False(t, summary.Aborted)
	assert.Zero(t, summary.NotAttempted())
}

func TestRunner_Run_ContinueAttemptsEveryFile(t *testing.T) {
	// Given: three files where b.txt cannot be uploaded
	dir := writeDocs(t, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})
	uploadErr := ierrors.StoreUploadError("record store returned 409", `{"code":"23505"}`, nil)
	emb := &MockEmbedder{Vector: []float32{1}}
	st := &MockStore{FailOn: map[string]error{"b.txt": uploadErr}}
	r, renderer := newMockRunner(t, emb, st)

	// When: running with the continue policy
	summary, err := r.Run(context.Background(), RunnerConfig{Dir: dir, Sort: true, Policy: PolicyContinue})

	// Then: every file is attempted and the failure is reported
	require.Error(t, err)
	assert.True(t, ierrors.HasCode(err, ierrors.ErrCodeStoreUpload))
	assert.Equal(t, []string{"a", "b", "c"}, emb.Calls)
	assert.Len(t, st.Records, 2)
	assert.Equal(t, 2, summary.Indexed)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, summary.Aborted)

	names := make([]string, 0, len(summary.Results))
	for _, res := range summary.Results {
		names = append(names, res.Name)
	}
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, names)
	assert.Len(t, renderer.FileEvents, 2)
	require.Len(t, renderer.ErrorEvents, 1)
	assert.Equal(t, "b.txt", renderer.ErrorEvents[0].File)
}

func TestRunner_Run_ContinueJoinsFailures(t *testing.T) {
	// Given: two of three files fail with different errors
	dir := writeDocs(t, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})
	embedErr := ierrors.EmbeddingServiceError("embedding service returned 503", "", nil)
	uploadErr := ierrors.StoreUploadError("record store returned 400", "", nil)
	emb := &MockEmbedder{Vector: []float32{1}, FailOn: map[string]error{"a": embedErr}}
	st := &MockStore{FailOn: map[string]error{"c.txt": uploadErr}}
	r, _ := newMockRunner(t, emb, st)

	// When: running with the continue policy
	_, err := r.Run(context.Background(), RunnerConfig{Dir: dir, Sort: true, Policy: PolicyContinue})

	// Then: the error counts the failures and matches both codes
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 files failed")
	assert.True(t, errors.Is(err, embedErr))
	assert.True(t, errors.Is(err, uploadErr))
}

func TestRunner_Run_LockHeldRejectsSecondRun(t *testing.T) {
	// Given: another run holds the directory lock
	dir := writeDocs(t, map[string]string{"a.txt": "a"})
	other := NewRunLock("", dir)
	require.NoError(t, other.Acquire())
	defer func() { _ = other.Release() }()

	emb := &MockEmbedder{Vector: []float32{1}}
	r, _ := newMockRunner(t, emb, &MockStore{})

	// When: running
	summary, err := r.Run(context.Background(), RunnerConfig{Dir: dir})

	// Then: the run is rejected before any file is processed
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.True(t, ierrors.HasCode(err, ierrors.ErrCodeLockHeld))
	assert.Empty(t, emb.Calls)
}

func TestRunner_Run_ReleasesLock(t *testing.T) {
	// Given: a finished run
	dir := writeDocs(t, map[string]string{"a.txt": "a"})
	r, _ := newMockRunner(t, &MockEmbedder{Vector: []float32{1}}, &MockStore{})
	_, err := r.Run(context.Background(), RunnerConfig{Dir: dir})
	require.NoError(t, err)

	// When: another run starts
	_, err = r.Run(context.Background(), RunnerConfig{Dir: dir})

	// Then: the lock is available again
	assert.NoError(t, err)
}

func TestRunner_Run_InvalidUTF8FileFails(t *testing.T) {
	// Given: one Latin-1 file next to a valid one
	dir := writeDocs(t, map[string]string{"bad.txt": "caf\xe9", "good.txt": "café"})
	emb := &MockEmbedder{Vector: []float32{1}}
	st := &MockStore{}
	r, _ := newMockRunner(t, emb, st)

	// When: running with the continue policy
	summary, err := r.Run(context.Background(), RunnerConfig{Dir: dir, Sort: true, Policy: PolicyContinue})

	// Then: the bad file is never embedded and only the valid text is stored
	require.ErrorIs(t, err, document.ErrNotUTF8)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{"café"}, emb.Calls)
	require.Len(t, st.Records, 1)
	assert.Equal(t, "good.txt", st.Records[0].Title)
}

func TestRunner_Run_ReadOnlyDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	// Given: a documents directory that can be listed but not written
	dir := writeDocs(t, map[string]string{"a.txt": "hola"})
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })
	st := &MockStore{}
	r, _ := newMockRunner(t, &MockEmbedder{Vector: []float32{1}}, st)

	// When: running
	summary, err := r.Run(context.Background(), RunnerConfig{Dir: dir})

	// Then: the file is indexed and nothing is written to the directory
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Indexed)
	assert.Len(t, st.Records, 1)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRunner_Run_UnusableLockDirIsInternal(t *testing.T) {
	// Given: a lock directory path occupied by a regular file
	dir := writeDocs(t, map[string]string{"a.txt": "a"})
	blocker := filepath.Join(t.TempDir(), "locks")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	emb := &MockEmbedder{Vector: []float32{1}}
	r, _ := newMockRunner(t, emb, &MockStore{})

	// When: running
	_, err := r.Run(context.Background(), RunnerConfig{Dir: dir, LockDir: blocker})

	// Then: the failure is internal, not a held lock
	require.Error(t, err)
	assert.True(t, ierrors.HasCode(err, ierrors.ErrCodeInternal))
	assert.False(t, ierrors.HasCode(err, ierrors.ErrCodeLockHeld))
	assert.Empty(t, emb.Calls)
}

func TestRunner_Run_CancelledContext(t *testing.T) {
	// Given: a cancelled context
	dir := writeDocs(t, map[string]string{"a.txt": "a", "b.txt": "b"})
	emb := &MockEmbedder{Vector: []float32{1}}
	r, _ := newMockRunner(t, emb, &MockStore{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// When: running
	summary, err := r.Run(ctx, RunnerConfig{Dir: dir, Policy: PolicyContinue})

	// Then: no file is attempted
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, summary.Aborted)
	assert.Empty(t, emb.Calls)
	assert.Equal(t, 2, summary.NotAttempted())
}

func TestRunner_Run_ReportsStagesInOrder(t *testing.T) {
	// Given: one file
	dir := writeDocs(t, map[string]string{"a.txt": "a"})
	r, renderer := newMockRunner(t, &MockEmbedder{Vector: []float32{1}}, &MockStore{})

	// When: running
	_, err := r.Run(context.Background(), RunnerConfig{Dir: dir})
	require.NoError(t, err)

	// Then: scanning, embedding and uploading are reported in order
	stages := make([]ui.Stage, 0, len(renderer.ProgressEvents))
	for _, ev := range renderer.ProgressEvents {
		stages = append(stages, ev.Stage)
	}
	assert.Equal(t, []ui.Stage{ui.StageScanning, ui.StageEmbedding, ui.StageUploading}, stages)
	assert.Equal(t, 1, renderer.ProgressEvents[1].Current)
	assert.Equal(t, 1, renderer.ProgressEvents[1].Total)
	assert.Equal(t, "a.txt", renderer.ProgressEvents[1].CurrentFile)

	assert.True(t, renderer.CompleteCalled)
	assert.Equal(t, "mock-model", renderer.CompletionStats.Embedder.Model)
	assert.Equal(t, "mock", renderer.CompletionStats.Store)
}

func TestRunner_Run_OfflineStackEndToEnd(t *testing.T) {
	// Given: the static embedder and an in-memory SQLite store
	dir := writeDocs(t, map[string]string{"uno.txt": "primer documento", "dos.txt": "segundo documento"})
	st, err := store.NewSQLiteStore("", store.DefaultTable)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	r, _ := newMockRunner(t, embed.NewStaticEmbedder(), st)

	// When: running
	summary, err := r.Run(context.Background(), RunnerConfig{Dir: dir, Sort: true})

	// Then: both records are stored with 384-dimension embeddings
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Indexed)
	records, err := st.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "dos.txt", records[0].Record.Title)
	assert.Len(t, records[0].Record.Embedding, embed.StaticDimensions)
}

func TestPolicy_String(t *testing.T) {
	assert.Equal(t, "fail-fast", PolicyFailFast.String())
	assert.Equal(t, "continue", PolicyContinue.String())
	assert.Equal(t, "unknown", Policy(7).String())
}
