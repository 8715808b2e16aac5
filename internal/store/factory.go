package store

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/docindex/internal/config"
)

// NewRecordStore creates the store selected by cfg.Backend.
// An empty backend selects Supabase.
func NewRecordStore(cfg config.StoreConfig) (RecordStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendSupabase:
		s, err := NewSupabaseStore(SupabaseConfig{
			URL:           cfg.URL,
			APIKey:        cfg.APIKey,
			Table:         cfg.Table,
			Timeout:       cfg.Timeout,
			MatchFunction: cfg.MatchFunction,
		})
		if err != nil {
			return nil, err
		}
		return s, nil

	case BackendSQLite:
		s, err := NewSQLiteStore(cfg.SQLitePath, cfg.Table)
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
