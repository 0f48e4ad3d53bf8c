package code

import (
	"runtime"
	"sync"
)

// Func is a Unit describing a Go function of the running binary.
// Funcs are interned: ForPC returns the same *Func for every program
// counter of a given function.
type Func struct {
	name  string
	file  string
	entry uintptr
}

type funcKey struct {
	entry uintptr
	name  string
}

var funcs sync.Map // funcKey -> *Func

// ForPC returns the function containing pc, or nil if the runtime doesn't
// know about it.
func ForPC(pc uintptr) *Func {
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return nil
	}
	// Inlined functions share the entry of the function they were inlined
	// into, the name tells them apart.
	key := funcKey{entry: fn.Entry(), name: fn.Name()}
	if f, ok := funcs.Load(key); ok {
		return f.(*Func)
	}
	file, _ := fn.FileLine(key.entry)
	f, _ := funcs.LoadOrStore(key, &Func{
		name:  key.name,
		file:  file,
		entry: key.entry,
	})
	return f.(*Func)
}

func (f *Func) Name() string {
	return f.name
}

func (f *Func) File() string {
	return f.file
}

// Entry returns the entry program counter of the function.
func (f *Func) Entry() uintptr {
	return f.entry
}

// Offset converts a program counter inside the function to an offset.
func (f *Func) Offset(pc uintptr) int {
	return int(pc - f.entry)
}

func (f *Func) Line(offset int) int {
	if offset < 0 {
		return 0
	}
	// Look the pc up again rather than using a cached *runtime.Func: for
	// inlined functions the runtime returns a description bound to a single
	// pc.
	pc := f.entry + uintptr(offset)
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return 0
	}
	_, line := fn.FileLine(pc)
	return line
}
