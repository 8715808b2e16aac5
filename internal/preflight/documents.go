package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Aman-CERP/docindex/internal/config"
	"github.com/Aman-CERP/docindex/internal/scanner"
)

// CheckConfig validates values and required credentials.
func (c *Checker) CheckConfig(cfg *config.Config) CheckResult {
	result := CheckResult{
		Name:     "config",
		Required: true,
	}

	if cfg == nil {
		result.Status = StatusFail
		result.Message = "configuration could not be loaded"
		return result
	}

	if err := cfg.Validate(); err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}
	if err := cfg.RequireCredentials(); err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("provider=%s backend=%s", cfg.Embeddings.Provider, cfg.Store.Backend)
	return result
}

// CheckDocumentsDir checks that dir can be listed. Nothing is written to it.
// A missing directory is a warning: the first run creates it.
func (c *Checker) CheckDocumentsDir(dir string) CheckResult {
	result := CheckResult{
		Name:     "documents_dir",
		Required: true,
		Details:  dir,
	}

	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		result.Status = StatusWarn
		result.Message = "directory does not exist (created on first run)"
		return result
	}
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot access: %v", err)
		return result
	}
	if !info.IsDir() {
		result.Status = StatusFail
		result.Message = "not a directory"
		return result
	}

	found, err := scanner.Discover(scanner.Options{Dir: dir})
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}

	if len(found.Files) == 0 {
		result.Status = StatusWarn
		result.Message = "no .txt files to index"
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d .txt file(s)", len(found.Files))
	return result
}
