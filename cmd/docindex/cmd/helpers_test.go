package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// workspace switches into an empty directory with no credentials set.
// Logs go under the same directory.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	for _, key := range []string{
		"HUGGINGFACE_KEY", "SUPABASE_URL", "SUPABASE_KEY",
		"DOCINDEX_DOCUMENTS_DIR", "DOCINDEX_EMBEDDINGS_PROVIDER", "DOCINDEX_EMBEDDINGS_MODEL",
		"DOCINDEX_HF_BASE_URL", "DOCINDEX_STORE_BACKEND", "DOCINDEX_STORE_TABLE",
		"DOCINDEX_SQLITE_PATH", "DOCINDEX_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	return dir
}

// writeDocs creates ./documentos with the given files.
func writeDocs(t *testing.T, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll("documentos", 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join("documentos", name), []byte(content), 0o644))
	}
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
