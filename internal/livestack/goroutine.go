package livestack

import (
	"runtime"

	"github.com/getsentry/calltrace/internal/code"
)

type (
	pcStack struct {
		funcs []*code.Func
		pcs   []uintptr
	}

	pcFrame struct {
		stack *pcStack
		i     int
	}
)

// Current returns the innermost frame of the calling goroutine. A skip of 0
// makes the caller of Current the innermost frame. It returns nil when there
// is nothing left after skipping.
func Current(skip int) Frame {
	pcs := make([]uintptr, 32)
	for {
		// Skip runtime.Callers and Current itself.
		n := runtime.Callers(skip+2, pcs)
		if n < len(pcs) {
			pcs = pcs[:n]
			break
		}
		pcs = make([]uintptr, 2*len(pcs))
	}

	s := pcStack{
		funcs: make([]*code.Func, 0, len(pcs)),
		pcs:   make([]uintptr, 0, len(pcs)),
	}
	for _, pc := range pcs {
		// Return addresses point after the call instruction.
		f := code.ForPC(pc - 1)
		if f == nil {
			continue
		}
		s.funcs = append(s.funcs, f)
		s.pcs = append(s.pcs, pc-1)
	}
	if len(s.funcs) == 0 {
		return nil
	}
	return &pcFrame{stack: &s}
}

func (f *pcFrame) Caller() Frame {
	if f.i+1 >= len(f.stack.funcs) {
		return nil
	}
	return &pcFrame{stack: f.stack, i: f.i + 1}
}

func (f *pcFrame) Code() code.Unit {
	return f.stack.funcs[f.i]
}

func (f *pcFrame) Offset() int {
	return f.stack.funcs[f.i].Offset(f.stack.pcs[f.i])
}
