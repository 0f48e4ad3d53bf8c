package calltrace

import (
	"errors"
	"fmt"

	"github.com/getsentry/calltrace/internal/livestack"
)

// CurrentFrames captures every stack listed by e and returns the innermost
// view of each, keyed by stack ID. Unlike live frames of other goroutines,
// the views stay valid while those goroutines keep running. Stacks without
// frames are left out.
func CurrentFrames(e livestack.Enumerator) (map[uint64]*View, error) {
	stacks, err := e.Stacks()
	if err != nil {
		return nil, err
	}
	views := make(map[uint64]*View, len(stacks))
	for _, s := range stacks {
		snapshot, err := Capture(s.Top)
		if err != nil {
			return nil, fmt.Errorf("capturing stack %d: %w", s.ID, err)
		}
		v, err := snapshot.Innermost()
		if err != nil {
			if errors.Is(err, ErrEmptySnapshot) {
				continue
			}
			return nil, fmt.Errorf("viewing stack %d: %w", s.ID, err)
		}
		views[s.ID] = v
	}
	return views, nil
}
