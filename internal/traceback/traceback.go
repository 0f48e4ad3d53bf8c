// Package traceback formats resolved frames as plain text tracebacks.
package traceback

import (
	"fmt"
	"strings"

	"github.com/getsentry/calltrace/internal/calltrace"
	"github.com/getsentry/calltrace/internal/frame"
)

// Stack resolves the frames from the outermost caller down to v.
func Stack(v *calltrace.View, res *calltrace.Resolver) ([]frame.Frame, error) {
	var frames []frame.Frame
	for ; v != nil; v = v.Caller() {
		f, err := v.Frame(res)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	for i, j := 0, len(frames)-1; i < j; i, j = i+1, j-1 {
		frames[i], frames[j] = frames[j], frames[i]
	}
	return frames, nil
}

// FormatList formats frames, oldest first, two lines per frame. The source
// line is left out when it's unknown.
func FormatList(frames []frame.Frame) string {
	var b strings.Builder
	for _, f := range frames {
		fmt.Fprintf(&b, "  File %q, line %d, in %s\n", f.File, f.Line, f.Function)
		if s := f.SourceText(); s != "" {
			fmt.Fprintf(&b, "    %s\n", s)
		}
	}
	return b.String()
}

// FormatStack resolves and formats the stack ending at v.
func FormatStack(v *calltrace.View, res *calltrace.Resolver) (string, error) {
	frames, err := Stack(v, res)
	if err != nil {
		return "", err
	}
	return FormatList(frames), nil
}
