package calltrace

import (
	"errors"
	"fmt"
	"testing"

	"github.com/getsentry/calltrace/internal/frame"
	"github.com/getsentry/calltrace/internal/testutil"
)

// referenceSlice selects items one by one with the textbook definition of a
// sequence slice, for comparison with Range.Indices.
func referenceSlice(items []int, r Range) []int {
	n := len(items)
	step := 1
	if r.Step != nil {
		step = *r.Step
	}
	norm := func(b *int, def int) int {
		if b == nil {
			return def
		}
		v := *b
		if v < 0 {
			v += n
		}
		return v
	}
	result := []int{}
	if step > 0 {
		start, stop := norm(r.Start, 0), norm(r.Stop, n)
		for i := max(start, 0); i < min(stop, n); i += step {
			result = append(result, items[i])
		}
	} else {
		start, stop := norm(r.Start, n-1), norm(r.Stop, -1)
		if r.Stop != nil && stop < 0 {
			stop = -1
		}
		for i := min(start, n-1); i > stop && i >= 0; i += step {
			result = append(result, items[i])
		}
	}
	return result
}

func TestRangeIndices(t *testing.T) {
	bounds := []*int{nil, Bound(-9), Bound(-4), Bound(-1), Bound(0), Bound(1), Bound(3), Bound(7), Bound(100)}
	steps := []*int{nil, Bound(-7), Bound(-2), Bound(-1), Bound(1), Bound(2), Bound(13)}
	for length := 0; length <= 6; length++ {
		items := make([]int, length)
		for i := range items {
			items[i] = i
		}
		for _, start := range bounds {
			for _, stop := range bounds {
				for _, step := range steps {
					r := Range{Start: start, Stop: stop, Step: step}
					first, _, st, n, err := r.Indices(length)
					if err != nil {
						t.Fatalf("unexpected error: %v", err)
					}
					got := []int{}
					for i, cur := 0, first; i < n; i, cur = i+1, cur+st {
						got = append(got, items[cur])
					}
					want := referenceSlice(items, r)
					if diff := testutil.Diff(got, want); diff != "" {
						t.Fatalf("length %d, %s: got - want +\n%s", length, formatRange(r), diff)
					}
				}
			}
		}
	}
}

func formatRange(r Range) string {
	f := func(b *int) string {
		if b == nil {
			return ""
		}
		return fmt.Sprint(*b)
	}
	return fmt.Sprintf("[%s:%s:%s]", f(r.Start), f(r.Stop), f(r.Step))
}

func TestRangeZeroStep(t *testing.T) {
	if _, _, _, _, err := (Range{Step: Bound(0)}).Indices(3); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSlice(t *testing.T) {
	s, err := Capture(mainFG())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	main := frame.Frame{File: "app.py", Function: "main", Line: 1}
	f := frame.Frame{File: "app.py", Function: "f", Line: 5}
	g := frame.Frame{File: "app.py", Function: "g", Line: 10}

	tests := []struct {
		name string
		r    Range
		want []frame.Frame
	}{
		{
			name: "everything in order",
			r:    Range{Start: Bound(0), Stop: Bound(s.Len()), Step: Bound(1)},
			want: []frame.Frame{main, f, g},
		},
		{
			name: "innermost first",
			r:    Range{Start: Bound(s.Len() - 1), Step: Bound(-1)},
			want: []frame.Frame{g, f, main},
		},
		{
			name: "stop at -1 is the last frame",
			r:    Range{Start: Bound(s.Len() - 1), Stop: Bound(-1), Step: Bound(-1)},
			want: []frame.Frame{},
		},
		{
			name: "clamped bounds",
			r:    Range{Start: Bound(-100), Stop: Bound(100), Step: Bound(2)},
			want: []frame.Frame{main, g},
		},
		{
			name: "empty range",
			r:    Range{Start: Bound(2), Stop: Bound(1)},
			want: []frame.Frame{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames, err := s.Slice(nil, tt.r)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := testutil.Diff(frames, tt.want); diff != "" {
				t.Fatalf("Result mismatch: got - want +\n%s", diff)
			}
		})
	}
}

func TestSliceEmptySnapshot(t *testing.T) {
	s, err := Capture(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range []Range{
		{},
		{Start: Bound(-5), Stop: Bound(5)},
		{Start: Bound(3), Stop: Bound(-3), Step: Bound(-1)},
	} {
		frames, err := s.Slice(nil, r)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(frames) != 0 {
			t.Fatalf("expected no frames, got %d", len(frames))
		}
	}
}
