// Package livestack exposes the call stacks of running goroutines as
// chains of live frames.
//
// Live frames are only valid while the stack they belong to doesn't change.
// Walking the calling goroutine's own stack is always safe; stacks of other
// goroutines are obtained from a stop-the-world dump.
package livestack

import "github.com/getsentry/calltrace/internal/code"

type (
	// Frame is one activation record of a live call stack.
	Frame interface {
		// Caller returns the frame that called this one, or nil at the root.
		Caller() Frame
		// Code returns the unit being executed by the frame.
		Code() code.Unit
		// Offset returns the current instruction offset within Code.
		Offset() int
	}

	// Stack pairs an execution context with its innermost frame.
	Stack struct {
		ID    uint64
		State string
		Top   Frame
	}

	// Enumerator lists the stacks of all running execution contexts.
	Enumerator interface {
		Stacks() ([]Stack, error)
	}
)
