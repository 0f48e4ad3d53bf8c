package testutil

import (
	"github.com/getsentry/calltrace/internal/code"
	"github.com/getsentry/calltrace/internal/livestack"
)

type (
	// Frame is a live frame whose fields tests can change at will.
	Frame struct {
		Parent *Frame
		Unit   code.Unit
		Off    int
	}

	// Enumerator returns fixed stacks.
	Enumerator struct {
		Result []livestack.Stack
		Err    error
	}
)

func (f *Frame) Caller() livestack.Frame {
	if f.Parent == nil {
		return nil
	}
	return f.Parent
}

func (f *Frame) Code() code.Unit {
	return f.Unit
}

func (f *Frame) Offset() int {
	return f.Off
}

// Stack links frames, outermost first, and returns the innermost one. It
// returns nil without frames.
func Stack(frames ...*Frame) livestack.Frame {
	if len(frames) == 0 {
		return nil
	}
	for i := 1; i < len(frames); i++ {
		frames[i].Parent = frames[i-1]
	}
	return frames[len(frames)-1]
}

func (e Enumerator) Stacks() ([]livestack.Stack, error) {
	return e.Result, e.Err
}
