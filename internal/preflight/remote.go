package preflight

import (
	"context"
	"fmt"

	"github.com/Aman-CERP/docindex/internal/embed"
	"github.com/Aman-CERP/docindex/internal/store"
)

// verifier is implemented by embedders that can report why they are
// unavailable.
type verifier interface {
	Verify(ctx context.Context) (int, error)
}

// CheckEmbedder embeds a sample text.
func (c *Checker) CheckEmbedder(ctx context.Context, e embed.Embedder) CheckResult {
	result := CheckResult{
		Name:     "embedder",
		Required: true,
	}

	if e == nil {
		result.Status = StatusFail
		result.Message = "not configured"
		return result
	}
	result.Details = e.ModelName()

	if p, ok := e.(verifier); ok {
		dims, err := p.Verify(ctx)
		if err != nil {
			result.Status = StatusFail
			result.Message = err.Error()
			return result
		}
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%s (%d dims)", e.ModelName(), dims)
		return result
	}

	if !e.Available(ctx) {
		result.Status = StatusFail
		result.Message = e.ModelName() + " unavailable"
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s (%d dims)", e.ModelName(), e.Dimensions())
	return result
}

// CheckStore pings the record store.
func (c *Checker) CheckStore(ctx context.Context, s store.RecordStore) CheckResult {
	result := CheckResult{
		Name:     "store",
		Required: true,
	}

	if s == nil {
		result.Status = StatusFail
		result.Message = "not configured"
		return result
	}

	if err := s.Ping(ctx); err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		result.Details = s.Backend()
		return result
	}

	result.Status = StatusPass
	result.Message = s.Backend() + " reachable"
	return result
}
