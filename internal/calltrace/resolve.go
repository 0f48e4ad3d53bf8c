package calltrace

import (
	"fmt"

	"github.com/getsentry/calltrace/internal/frame"
)

// LineSource provides the source text shown under traceback lines.
type LineSource interface {
	// Stale reports whether the cached copy of file is outdated.
	Stale(file string) bool
	// Invalidate drops the cached copy of file.
	Invalidate(file string)
	// Line returns line lineno of file with surrounding whitespace trimmed,
	// or an empty string if it's not available.
	Line(file string, lineno int) (string, error)
}

// Resolver turns records into frames. It's created once and passed to every
// resolution.
type Resolver struct {
	lines LineSource
}

// NewResolver returns a resolver reading source text from lines. A nil
// source resolves frames without source text.
func NewResolver(lines LineSource) *Resolver {
	return &Resolver{lines: lines}
}

// Resolve returns the file, line, function and source text of rec.
// Failures of the line source are returned wrapped in ErrResolution.
func (r *Resolver) Resolve(rec Record) (frame.Frame, error) {
	file := rec.Code.File()
	f := frame.New(file, rec.Code.Name(), rec.Line())
	if r == nil || r.lines == nil {
		return f, nil
	}
	if r.lines.Stale(file) {
		r.lines.Invalidate(file)
	}
	text, err := r.lines.Line(file, f.Line)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("%w: %s:%d: %w", ErrResolution, file, f.Line, err)
	}
	if text != "" {
		f.Source = &text
	}
	return f, nil
}
