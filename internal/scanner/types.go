// Package scanner discovers the text documents docindex indexes.
// Discovery is flat: only regular files directly inside the directory whose
// extension is .txt (any case) are returned.
package scanner

import "time"

// TextExtension is the extension, compared case-insensitively, of indexable files.
const TextExtension = ".txt"

// FileInfo contains metadata about a discovered file.
type FileInfo struct {
	Name    string    // Base name, used as the record title
	Path    string    // Path joined from the scanned directory
	Size    int64     // File size in bytes
	ModTime time.Time // Last modification time
}

// Options configures discovery.
type Options struct {
	// Dir is the directory to list.
	Dir string

	// Sort orders files by name. When false, the directory-listing order is kept.
	Sort bool

	// CreateIfMissing creates Dir when it does not exist and reports an empty,
	// Created result instead of an error.
	CreateIfMissing bool
}

// Result is the outcome of a discovery pass.
type Result struct {
	Files []FileInfo

	// Skipped counts entries that were listed but are not indexable.
	Skipped int

	// Created is true when Dir did not exist and was created.
	Created bool
}
