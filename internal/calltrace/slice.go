package calltrace

import "fmt"

// Range selects records the way a sequence slice does. Nil bounds take
// their defaults: the whole snapshot, in order.
type Range struct {
	Start *int
	Stop  *int
	Step  *int
}

// Bound returns a pointer to v, for use in a Range.
func Bound(v int) *int {
	return &v
}

// Indices resolves r against a sequence of the given length. It returns the
// first index, the stop index, the step and the number of selected items.
// Out of range bounds are clamped.
func (r Range) Indices(length int) (start, stop, step, n int, err error) {
	step = 1
	if r.Step != nil {
		step = *r.Step
	}
	if step == 0 {
		return 0, 0, 0, 0, fmt.Errorf("%w: slice step cannot be zero", ErrInvalidArgument)
	}

	lower, upper := 0, length
	if step < 0 {
		lower, upper = -1, length-1
	}
	clamp := func(b *int, def int) int {
		if b == nil {
			return def
		}
		v := *b
		if v < 0 {
			v += length
			if v < lower {
				v = lower
			}
		} else if v > upper {
			v = upper
		}
		return v
	}
	if step < 0 {
		start, stop = clamp(r.Start, upper), clamp(r.Stop, lower)
		if stop < start {
			n = (start-stop-1)/(-step) + 1
		}
	} else {
		start, stop = clamp(r.Start, lower), clamp(r.Stop, upper)
		if start < stop {
			n = (stop-start-1)/step + 1
		}
	}
	return start, stop, step, n, nil
}
