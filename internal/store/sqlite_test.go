package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docindex/internal/document"
	ierrors "github.com/Aman-CERP/docindex/internal/errors"
)

func TestSQLiteStore_InsertAndList(t *testing.T) {
	// Given: an in-memory store
	s, err := NewSQLiteStore("", "")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	// When: inserting two records, one a duplicate title
	rec := document.Record{Title: "a.txt", Content: "hello", Embedding: []float32{0.1, 0.2, 0.3}}
	require.NoError(t, s.Insert(ctx, rec))
	require.NoError(t, s.Insert(ctx, rec))

	// Then: both are stored in order, embeddings intact
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, rec, records[0].Record)
	assert.Less(t, records[0].ID, records[1].ID)
	assert.WithinDuration(t, time.Now(), records[0].CreatedAt, time.Minute)
}

func TestSQLiteStore_PersistsToFile(t *testing.T) {
	// Given: a file-backed store with one record
	path := filepath.Join(t.TempDir(), "nested", "docindex.db")
	s, err := NewSQLiteStore(path, "conocimiento_agente")
	require.NoError(t, err)
	require.NoError(t, s.Insert(context.Background(), document.Record{Title: "a.txt", Content: "x"}))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	// When: reopening
	reopened, err := NewSQLiteStore(path, "conocimiento_agente")
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	// Then: the record is still there
	records, err := reopened.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a.txt", records[0].Record.Title)
	assert.Nil(t, records[0].Record.Embedding)
	assert.Equal(t, path, reopened.Path())
}

func TestSQLiteStore_Ping(t *testing.T) {
	s, err := NewSQLiteStore("", "")
	require.NoError(t, err)

	assert.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, BackendSQLite, s.Backend())

	require.NoError(t, s.Close())
	assert.Error(t, s.Ping(context.Background()))
	assert.Error(t, s.Insert(context.Background(), document.Record{}))
}

func TestNewSQLiteStore_RejectsBadTableName(t *testing.T) {
	_, err := NewSQLiteStore("", "x; DROP TABLE y")

	require.Error(t, err)
	assert.True(t, ierrors.HasCode(err, ierrors.ErrCodeConfigInvalid))
}

func TestParseTimestamp(t *testing.T) {
	assert.Equal(t, 2024, parseTimestamp("2024-05-01 10:11:12").Year())
	assert.Equal(t, 2024, parseTimestamp("2024-05-01T10:11:12.5Z").Year())
	assert.True(t, parseTimestamp("garbage").IsZero())
}
