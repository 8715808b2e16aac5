package scanner

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ierrors "github.com/Aman-CERP/docindex/internal/errors"
)

// Discover lists opts.Dir and returns its indexable files.
func Discover(opts Options) (*Result, error) {
	info, err := os.Stat(opts.Dir)
	switch {
	case errors.Is(err, fs.ErrNotExist) && opts.CreateIfMissing:
		if mkErr := os.MkdirAll(opts.Dir, 0o755); mkErr != nil {
			return nil, ierrors.DirectoryError(opts.Dir, mkErr)
		}
		return &Result{Created: true}, nil
	case err != nil:
		return nil, ierrors.DirectoryError(opts.Dir, err)
	case !info.IsDir():
		return nil, ierrors.DirectoryError(opts.Dir, errors.New("not a directory"))
	}

	entries, err := readDirUnsorted(opts.Dir)
	if err != nil {
		return nil, ierrors.DirectoryError(opts.Dir, err)
	}

	result := &Result{Files: make([]FileInfo, 0, len(entries))}
	for _, entry := range entries {
		if !IsIndexable(entry) {
			result.Skipped++
			continue
		}

		fi, err := entry.Info()
		if err != nil {
			// Removed between listing and stat.
			result.Skipped++
			continue
		}

		result.Files = append(result.Files, FileInfo{
			Name:    entry.Name(),
			Path:    filepath.Join(opts.Dir, entry.Name()),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}

	if opts.Sort {
		sort.Slice(result.Files, func(i, j int) bool {
			return result.Files[i].Name < result.Files[j].Name
		})
	}

	return result, nil
}

// IsIndexable reports whether entry is a regular file with a .txt extension.
func IsIndexable(entry fs.DirEntry) bool {
	if !entry.Type().IsRegular() {
		return false
	}
	return HasTextExtension(entry.Name())
}

// HasTextExtension reports whether name ends in .txt, ignoring case.
func HasTextExtension(name string) bool {
	return strings.EqualFold(filepath.Ext(name), TextExtension)
}

// readDirUnsorted returns the entries of dir in the order the filesystem
// lists them. os.ReadDir would sort by name.
func readDirUnsorted(dir string) ([]fs.DirEntry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return f.ReadDir(-1)
}
