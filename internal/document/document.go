// Package document defines the record docindex sends to the store and the
// text normalization applied to every file before it is embedded.
package document

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"unicode/utf8"

	ierrors "github.com/Aman-CERP/docindex/internal/errors"
)

// Record is one embedded document, serialized with the column names of the
// remote conocimiento_agente table.
type Record struct {
	Title     string    `json:"titulo"`
	Content   string    `json:"contenido"`
	Embedding []float32 `json:"embedding"`
}

// Normalize trims surrounding whitespace and converts CRLF line breaks to LF.
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(text string) string {
	return strings.TrimSpace(collapseCRLF(text))
}

// collapseCRLF drops every '\r' that belongs to a run of carriage returns
// ending in '\n'. A single ReplaceAll pass would turn "\r\r\n" into "\r\n",
// which a second pass would change again.
func collapseCRLF(text string) string {
	if !strings.Contains(text, "\r\n") {
		return text
	}

	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if text[i] == '\r' {
			j := i
			for j < len(text) && text[j] == '\r' {
				j++
			}
			if j < len(text) && text[j] == '\n' {
				i = j - 1
				continue
			}
			sb.WriteString(text[i:j])
			i = j - 1
			continue
		}
		sb.WriteByte(text[i])
	}
	return sb.String()
}

// ErrNotUTF8 is the cause of a Load error for a file that is not valid UTF-8.
var ErrNotUTF8 = errors.New("file is not valid UTF-8 text")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load reads the whole file at path and returns its normalized text.
// A leading UTF-8 byte order mark is dropped.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ierrors.FilesystemError(path, err)
	}
	if !utf8.Valid(data) {
		return "", ierrors.FilesystemError(path, ErrNotUTF8)
	}
	return Normalize(string(bytes.TrimPrefix(data, utf8BOM))), nil
}
