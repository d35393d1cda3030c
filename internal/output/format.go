// Package output renders command results for the custody CLI as text for
// terminals or JSON for scripts.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format is an output format.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatAuto Format = "auto"
)

// TextFunc writes the human-readable form of a result.
type TextFunc func(w io.Writer) error

// Formatter writes results in one format.
type Formatter struct {
	format Format
	out    io.Writer
	errOut io.Writer
}

// NewFormatter creates a formatter writing results to out. Notices go to
// stderr.
func NewFormatter(format Format, out io.Writer) *Formatter {
	return &Formatter{format: format, out: out, errOut: os.Stderr}
}

// WithErrWriter redirects notices.
func (f *Formatter) WithErrWriter(w io.Writer) *Formatter {
	f.errOut = w
	return f
}

// Format returns the output format.
func (f *Formatter) Format() Format {
	return f.format
}

// Writer returns the result writer.
func (f *Formatter) Writer() io.Writer {
	return f.out
}

// IsJSON reports whether results are written as JSON.
func (f *Formatter) IsJSON() bool {
	return f.format == FormatJSON
}

// Render writes v as indented JSON, or calls text in text mode. A nil
// text func prints v with fmt.
func (f *Formatter) Render(v any, text TextFunc) error {
	if f.IsJSON() {
		enc := json.NewEncoder(f.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	if text != nil {
		return text(f.out)
	}
	_, err := fmt.Fprintln(f.out, v)
	return err
}

// Printf writes text output. It is a no-op in JSON mode.
func (f *Formatter) Printf(format string, args ...any) {
	if f.IsJSON() {
		return
	}
	_, _ = fmt.Fprintf(f.out, format, args...)
}

// Successf writes a success notice.
func (f *Formatter) Successf(format string, args ...any) {
	_, _ = fmt.Fprintln(f.errOut, "✅ "+fmt.Sprintf(format, args...))
}

// Warnf writes a warning notice.
func (f *Formatter) Warnf(format string, args ...any) {
	_, _ = fmt.Fprintln(f.errOut, "⚠️  "+fmt.Sprintf(format, args...))
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok || file == nil {
		return false
	}
	return term.IsTerminal(int(file.Fd())) //nolint:gosec // G115: Fd() fits in int
}

// DetectFormat resolves FormatAuto to text on a terminal and JSON
// otherwise. Explicit formats are returned unchanged.
func DetectFormat(w io.Writer, explicit Format) Format {
	if explicit != FormatAuto {
		return explicit
	}
	if IsTerminal(w) {
		return FormatText
	}
	return FormatJSON
}

// ParseFormat parses a format name. Unknown names mean auto.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON
	case FormatText:
		return FormatText
	default:
		return FormatAuto
	}
}
