// Package calltrace captures call stacks into compact, immutable snapshots.
//
// A Snapshot keeps a code unit and an instruction offset per frame and
// nothing else, so capturing a stack doesn't extend the lifetime of the
// values referenced by its frames. A View walks a snapshot like a linked
// stack of frames without allocating the frames up front.
package calltrace

import (
	"fmt"
	"runtime"

	"github.com/getsentry/calltrace/internal/frame"
	"github.com/getsentry/calltrace/internal/livestack"
)

// maxDepth bounds the size of a single snapshot allocation.
var maxDepth = 1 << 16

// Snapshot is a captured call stack. Record 0 is the outermost call, the
// last record is the innermost one. Snapshots never change once captured and
// are safe for concurrent use.
type Snapshot struct {
	records []Record
}

func depth(f livestack.Frame) int {
	n := 0
	for ; f != nil; f = f.Caller() {
		n++
	}
	return n
}

// Capture copies the stack ending at top into a new snapshot. A nil top
// gives an empty snapshot.
//
// The stack must not change while it's captured: it's walked twice, once to
// size the snapshot and once to fill it. The calling goroutine's own stack
// and stacks of a stopped world satisfy this.
//
// Code units implementing code.Pinner are pinned for the lifetime of the
// snapshot and unpinned once it's garbage collected. If pinning fails, the
// units pinned so far are released and no snapshot is returned.
func Capture(top livestack.Frame) (*Snapshot, error) {
	n := depth(top)
	if n > maxDepth {
		return nil, fmt.Errorf("%w: stack depth %d exceeds %d frames", ErrOutOfMemory, n, maxDepth)
	}

	records := make([]Record, n)
	f := top
	for i := 0; i < n; i++ {
		if err := records[n-1-i].init(f); err != nil {
			releaseRecords(records[n-i:])
			return nil, err
		}
		f = f.Caller()
	}

	s := &Snapshot{records: records}
	if n > 0 {
		runtime.AddCleanup(s, releaseRecords, records)
	}
	return s, nil
}

// New is the construction entry point: without arguments it captures the
// caller's goroutine, with one argument it captures the stack of that
// livestack.Frame. Anything else is rejected with ErrInvalidArgument.
func New(args ...any) (*Snapshot, error) {
	switch len(args) {
	case 0:
		return Capture(livestack.Current(1))
	case 1:
		f, ok := args[0].(livestack.Frame)
		if !ok {
			return nil, fmt.Errorf("%w: calltrace requires a frame, got %T", ErrInvalidArgument, args[0])
		}
		return Capture(f)
	default:
		return nil, fmt.Errorf("%w: calltrace takes at most 1 argument, got %d", ErrInvalidArgument, len(args))
	}
}

// CurrentView captures the caller's goroutine and returns a view on the
// caller's frame.
func CurrentView() (*View, error) {
	s, err := Capture(livestack.Current(1))
	if err != nil {
		return nil, err
	}
	return s.Innermost()
}

// Len returns the number of captured frames.
func (s *Snapshot) Len() int {
	return len(s.records)
}

func (s *Snapshot) normalize(i int) (int, error) {
	if i < 0 {
		i += len(s.records)
	}
	if i < 0 || i >= len(s.records) {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(s.records))
	}
	return i, nil
}

// At returns the record at index i. Negative indices count from the end.
func (s *Snapshot) At(i int) (Record, error) {
	i, err := s.normalize(i)
	if err != nil {
		return Record{}, err
	}
	return s.records[i], nil
}

// Slice resolves the records selected by r.
func (s *Snapshot) Slice(res *Resolver, r Range) ([]frame.Frame, error) {
	start, _, step, n, err := r.Indices(len(s.records))
	if err != nil {
		return nil, err
	}
	frames := make([]frame.Frame, 0, n)
	for i, cur := 0, start; i < n; i, cur = i+1, cur+step {
		f, err := res.Resolve(s.records[cur])
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// Frames resolves every record, outermost first.
func (s *Snapshot) Frames(res *Resolver) ([]frame.Frame, error) {
	return s.Slice(res, Range{})
}

// View returns a view on the frame at index i. Negative indices count from
// the end.
func (s *Snapshot) View(i int) (*View, error) {
	i, err := s.normalize(i)
	if err != nil {
		return nil, err
	}
	return &View{snapshot: s, index: i}, nil
}

// Innermost returns a view on the most recent frame.
func (s *Snapshot) Innermost() (*View, error) {
	if len(s.records) == 0 {
		return nil, ErrEmptySnapshot
	}
	return &View{snapshot: s, index: len(s.records) - 1}, nil
}
