package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierrors "github.com/Aman-CERP/docindex/internal/errors"
)

func touch(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func names(files []FileInfo) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

func TestDiscover_SelectsTxtCaseInsensitive(t *testing.T) {
	// Given: a mix of text files, other files and a subdirectory
	dir := t.TempDir()
	touch(t, dir, "notes.TXT", "upper")
	touch(t, dir, "a.txt", "lower")
	touch(t, dir, "Mixed.TxT", "mixed")
	touch(t, dir, "notes.md", "markdown")
	touch(t, dir, "txt", "no extension")
	touch(t, dir, "archive.txt.bak", "backup")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0o755))
	touch(t, filepath.Join(dir, "sub.txt"), "nested.txt", "nested")

	// When: discovering
	result, err := Discover(Options{Dir: dir, Sort: true})

	// Then: only top-level regular .txt files are returned
	require.NoError(t, err)
	assert.Equal(t, []string{"Mixed.TxT", "a.txt", "notes.TXT"}, names(result.Files))
	assert.Equal(t, 4, result.Skipped)
	assert.False(t, result.Created)
}

func TestDiscover_PopulatesFileInfo(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.txt", "hello")

	result, err := Discover(Options{Dir: dir})

	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	f := result.Files[0]
	assert.Equal(t, "a.txt", f.Name)
	assert.Equal(t, filepath.Join(dir, "a.txt"), f.Path)
	assert.Equal(t, int64(5), f.Size)
	assert.False(t, f.ModTime.IsZero())
}

func TestDiscover_UnsortedReturnsEveryFileOnce(t *testing.T) {
	// Given: several files
	dir := t.TempDir()
	for _, n := range []string{"c.txt", "a.txt", "b.txt"} {
		touch(t, dir, n, n)
	}

	// When: discovering without sorting
	result, err := Discover(Options{Dir: dir})

	// Then: listing order is filesystem-defined, but the set is complete
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt", "c.txt"}, names(result.Files))
}

func TestDiscover_EmptyDirectory(t *testing.T) {
	result, err := Discover(Options{Dir: t.TempDir()})

	require.NoError(t, err)
	assert.Empty(t, result.Files)
	assert.Zero(t, result.Skipped)
}

func TestDiscover_HiddenNonTextFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, ".DS_Store", "")

	result, err := Discover(Options{Dir: dir})

	require.NoError(t, err)
	assert.Empty(t, result.Files)
}

func TestDiscover_MissingDirectory_CreatesIt(t *testing.T) {
	// Given: a directory that does not exist
	dir := filepath.Join(t.TempDir(), "documentos")

	// When: discovering with CreateIfMissing
	result, err := Discover(Options{Dir: dir, CreateIfMissing: true})

	// Then: it is created and reported
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Empty(t, result.Files)
	info, statErr := os.Stat(dir)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
}

func TestDiscover_MissingDirectory_Fails(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "documentos")

	_, err := Discover(Options{Dir: dir})

	require.Error(t, err)
	assert.True(t, ierrors.HasCode(err, ierrors.ErrCodeDirUnreadable))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoDirExists(t, dir)
}

func TestDiscover_PathIsAFile_Fails(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "plain", "x")

	_, err := Discover(Options{Dir: filepath.Join(dir, "plain"), CreateIfMissing: true})

	require.Error(t, err)
	assert.True(t, ierrors.HasCode(err, ierrors.ErrCodeDirUnreadable))
}

func TestHasTextExtension(t *testing.T) {
	tests := map[string]bool{
		"a.txt":     true,
		"a.TXT":     true,
		"a.tXt":     true,
		".txt":      true,
		"a.text":    false,
		"a.txt.gz":  false,
		"a":         false,
		"notes.md":  false,
		"a.b.c.txt": true,
	}

	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, HasTextExtension(name))
		})
	}
}
