package calltrace

import (
	"fmt"

	"github.com/getsentry/calltrace/internal/code"
	"github.com/getsentry/calltrace/internal/livestack"
)

// Record is what a snapshot keeps about a frame: enough to produce a
// traceback line, nothing that would keep the frame's values alive.
type Record struct {
	Code   code.Unit
	Offset int
}

// Line returns the source line the record's offset maps to.
func (r Record) Line() int {
	return r.Code.Line(r.Offset)
}

func (r *Record) init(f livestack.Frame) error {
	u := f.Code()
	if u == nil {
		return fmt.Errorf("%w: frame without code unit", ErrInvalidArgument)
	}
	if p, ok := u.(code.Pinner); ok {
		if err := p.Pin(); err != nil {
			return fmt.Errorf("pinning %s: %w", u.Name(), err)
		}
	}
	r.Code = u
	r.Offset = f.Offset()
	return nil
}

func (r *Record) release() {
	if r.Code == nil {
		return
	}
	if p, ok := r.Code.(code.Pinner); ok {
		p.Unpin()
	}
	r.Code = nil
}

func releaseRecords(records []Record) {
	for i := range records {
		records[i].release()
	}
}
