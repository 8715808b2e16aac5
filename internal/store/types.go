// Package store persists document records.
package store

import (
	"context"

	"github.com/Aman-CERP/docindex/internal/document"
)

// Backend names.
const (
	BackendSupabase = "supabase"
	BackendSQLite   = "sqlite"
)

// RecordStore receives one record per indexed document.
// Records are only appended; there is no identity or deduplication.
type RecordStore interface {
	// Insert stores one record.
	Insert(ctx context.Context, rec document.Record) error

	// Ping checks that the store is reachable and the table is accessible.
	Ping(ctx context.Context) error

	// Backend returns the backend name.
	Backend() string

	// Close releases resources.
	Close() error
}
