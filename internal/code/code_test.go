package code

import (
	"errors"
	"runtime"
	"strings"
	"testing"
)

func TestTableLine(t *testing.T) {
	table := NewTable("f", "f.py",
		LineEntry{Offset: 10, Line: 3},
		LineEntry{Offset: 0, Line: 1},
		LineEntry{Offset: 4, Line: 2},
		LineEntry{Offset: 4, Line: 7},
	)
	tests := []struct {
		name   string
		offset int
		line   int
	}{
		{name: "before first entry", offset: -1, line: 0},
		{name: "first entry", offset: 0, line: 1},
		{name: "between entries", offset: 3, line: 1},
		{name: "duplicated offset keeps last", offset: 4, line: 7},
		{name: "last entry", offset: 10, line: 3},
		{name: "past last entry", offset: 1000, line: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if line := table.Line(tt.offset); line != tt.line {
				t.Fatalf("expected line %d, got %d", tt.line, line)
			}
		})
	}
}

func TestTablePins(t *testing.T) {
	table := NewTable("f", "f.py")
	if err := table.Pin(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := table.Pin(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	table.Unpin()
	if pins := table.Pins(); pins != 1 {
		t.Fatalf("expected 1 pin, got %d", pins)
	}
	table.Retire()
	if err := table.Pin(); !errors.Is(err, ErrRetired) {
		t.Fatalf("expected ErrRetired, got %v", err)
	}
	if pins := table.Pins(); pins != 1 {
		t.Fatalf("a refused pin shouldn't be counted, got %d", pins)
	}
}

func callerPC() uintptr {
	pcs := make([]uintptr, 1)
	runtime.Callers(2, pcs)
	return pcs[0]
}

func TestForPC(t *testing.T) {
	pc := callerPC()
	f := ForPC(pc)
	if f == nil {
		t.Fatal("expected a function for our own program counter")
	}
	if !strings.HasSuffix(f.Name(), "code.TestForPC") {
		t.Fatalf("unexpected function name %q", f.Name())
	}
	if !strings.HasSuffix(f.File(), "code_test.go") {
		t.Fatalf("unexpected file %q", f.File())
	}
	if again := ForPC(pc); again != f {
		t.Fatal("expected the same interned function")
	}
	if line := f.Line(f.Offset(pc - 1)); line == 0 {
		t.Fatal("expected the offset to map to a line")
	}
	if line := f.Line(-1); line != 0 {
		t.Fatalf("expected no line for a negative offset, got %d", line)
	}
}

func TestForPCUnknown(t *testing.T) {
	if f := ForPC(0); f != nil {
		t.Fatalf("expected no function, got %q", f.Name())
	}
}
