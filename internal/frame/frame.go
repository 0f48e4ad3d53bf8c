package frame

import (
	"fmt"
	"hash"
	"path"
	"strings"
)

type (
	// Frame is a captured frame resolved to human readable data.
	Frame struct {
		File     string  `json:"filename,omitempty"`
		Function string  `json:"function,omitempty"`
		Line     int     `json:"lineno,omitempty"`
		Package  string  `json:"package,omitempty"`
		Source   *string `json:"context_line,omitempty"`
	}
)

// New returns a frame for function, deriving the package from the Go
// qualified function name.
func New(file, function string, line int) Frame {
	return Frame{
		File:     file,
		Function: function,
		Line:     line,
		Package:  PackageOf(function),
	}
}

// PackageOf returns the import path of a qualified Go function name such as
// "github.com/getsentry/calltrace/internal/code.(*Func).Line". Version
// elements of the last path element stay in the package, so
// "gopkg.in/yaml.v3.Marshal" belongs to "gopkg.in/yaml.v3".
func PackageOf(function string) string {
	// Type arguments can hold slashes and dots.
	if i := strings.IndexByte(function, '['); i >= 0 {
		function = function[:i]
	}
	slash := strings.LastIndex(function, "/")
	parts := strings.Split(function[slash+1:], ".")
	if len(parts) < 2 {
		return ""
	}
	n := 1
	for n < len(parts)-1 && isVersion(parts[n]) {
		n++
	}
	return function[:slash+1] + strings.Join(parts[:n], ".")
}

func isVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// SourceText returns the source line or an empty string when it's unknown.
func (f Frame) SourceText() string {
	if f.Source == nil {
		return ""
	}
	return *f.Source
}

func (f Frame) PackageBaseName() string {
	if f.Package != "" {
		return path.Base(f.Package)
	}
	return ""
}

func (f Frame) WriteToHash(h hash.Hash) {
	var s string
	if f.Package != "" {
		s = f.PackageBaseName()
	} else if f.File != "" {
		s = f.File
	} else {
		s = "-"
	}
	h.Write([]byte(s))
	if f.Function != "" {
		s = f.Function
	} else {
		s = "-"
	}
	h.Write([]byte(s))
	h.Write([]byte(fmt.Sprint(f.Line)))
}

// IsApplicationFrame reports whether the frame belongs to user code rather
// than the Go runtime or the standard library.
func (f Frame) IsApplicationFrame() bool {
	if f.Package == "" {
		return true
	}
	if f.Package == "main" {
		return true
	}
	// Standard library import paths have no dot in their first element.
	first, _, _ := strings.Cut(f.Package, "/")
	return strings.Contains(first, ".")
}
