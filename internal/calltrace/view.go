package calltrace

import (
	"github.com/getsentry/calltrace/internal/code"
	"github.com/getsentry/calltrace/internal/frame"
)

// View exposes one frame of a snapshot the way a live frame would. It keeps
// its snapshot alive.
type View struct {
	snapshot *Snapshot
	index    int
}

// Caller returns a view on the calling frame, or nil for the outermost frame.
func (v *View) Caller() *View {
	if v.index == 0 {
		return nil
	}
	return &View{snapshot: v.snapshot, index: v.index - 1}
}

func (v *View) record() Record {
	return v.snapshot.records[v.index]
}

// Code returns the code unit the frame was executing.
func (v *View) Code() code.Unit {
	return v.record().Code
}

// Line returns the line the frame was executing.
func (v *View) Line() int {
	return v.record().Line()
}

// Globals always returns nil: global state is never captured.
func (v *View) Globals() map[string]any {
	return nil
}

// Index returns the position of the frame in its snapshot.
func (v *View) Index() int {
	return v.index
}

// Snapshot returns the snapshot the view reads from.
func (v *View) Snapshot() *Snapshot {
	return v.snapshot
}

// Frame resolves the frame.
func (v *View) Frame(res *Resolver) (frame.Frame, error) {
	return res.Resolve(v.record())
}
