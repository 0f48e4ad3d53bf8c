package code

import (
	"sort"
	"sync/atomic"
)

type (
	// LineEntry maps the instructions starting at Offset to Line.
	LineEntry struct {
		Offset int
		Line   int
	}

	// Table is a Unit backed by an explicit offset to line table. Hosts
	// without a Go runtime representation of their code (interpreters,
	// goroutine dumps) describe their units with it.
	Table struct {
		name    string
		file    string
		entries []LineEntry

		pins    atomic.Int64
		retired atomic.Bool
	}
)

// NewTable returns a unit with the given line table. Entries don't need to
// be sorted; when two entries share an offset the last one wins.
func NewTable(name, file string, entries ...LineEntry) *Table {
	sorted := make([]LineEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})
	deduped := sorted[:0]
	for _, e := range sorted {
		if n := len(deduped); n > 0 && deduped[n-1].Offset == e.Offset {
			deduped[n-1] = e
			continue
		}
		deduped = append(deduped, e)
	}
	return &Table{name: name, file: file, entries: deduped}
}

func (t *Table) Name() string {
	return t.name
}

func (t *Table) File() string {
	return t.file
}

// Line returns the line of the last entry whose offset is not greater than
// offset, or 0 if offset precedes every entry.
func (t *Table) Line(offset int) int {
	i := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].Offset > offset
	})
	if i == 0 {
		return 0
	}
	return t.entries[i-1].Line
}

// Pin takes a reference on the unit. It fails once the unit was retired.
func (t *Table) Pin() error {
	if t.retired.Load() {
		return ErrRetired
	}
	t.pins.Add(1)
	return nil
}

func (t *Table) Unpin() {
	t.pins.Add(-1)
}

// Pins returns the number of outstanding references.
func (t *Table) Pins() int64 {
	return t.pins.Load()
}

// Retire marks the unit as unloaded by its host. Existing references stay
// valid, new ones are refused.
func (t *Table) Retire() {
	t.retired.Store(true)
}
