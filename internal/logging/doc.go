// Package logging writes structured JSON logs for docindex to a size-rotated
// file under ~/.docindex/logs/ and reads them back for `docindex logs`.
//
// Console output belongs to the progress renderers; logs never go to stdout.
// With --debug the level drops to debug.
package logging
