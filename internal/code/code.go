// Package code describes the units of executable code referenced by call
// stacks: Go functions known to the runtime and host-provided units backed
// by an explicit line table.
package code

import "errors"

// ErrRetired is returned by Pin once a unit was retired by its host.
var ErrRetired = errors.New("code unit retired")

type (
	// Unit is an immutable description of a block of executable code.
	Unit interface {
		// Name returns a human readable name, usually the function name.
		Name() string
		// File returns the source file the unit was compiled from.
		File() string
		// Line maps an instruction offset within the unit to a source line.
		// It returns 0 when the offset can't be mapped.
		Line(offset int) int
	}

	// Pinner is implemented by units whose lifetime is managed by explicit
	// references. Every successful Pin must be matched by one Unpin.
	Pinner interface {
		Pin() error
		Unpin()
	}
)
