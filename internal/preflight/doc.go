// Package preflight verifies that an indexing run can succeed before
// starting it.
//
// The package validates:
//   - Configuration and required credentials
//   - The documents directory (listable; it is never written)
//   - Embedding service reachability
//   - Record store reachability
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, preflight.Targets{Config: cfg, Embedder: e, Store: s})
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
