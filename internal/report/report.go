// Package report captures every goroutine of the process into a document
// that can be stored, published and printed.
package report

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/getsentry/calltrace/internal/calltrace"
	"github.com/getsentry/calltrace/internal/frame"
	"github.com/getsentry/calltrace/internal/livestack"
	"github.com/getsentry/calltrace/internal/nodetree"
	"github.com/getsentry/calltrace/internal/traceback"
)

type (
	Goroutine struct {
		ID     uint64        `json:"id"`
		State  string        `json:"state,omitempty"`
		Frames []frame.Frame `json:"frames"`
	}

	Report struct {
		ID          string      `json:"report_id"`
		Environment string      `json:"environment,omitempty"`
		Release     string      `json:"release,omitempty"`
		Timestamp   time.Time   `json:"timestamp"`
		Goroutines  []Goroutine `json:"goroutines"`
	}

	// KafkaMessage is what we publish once a report is stored.
	KafkaMessage struct {
		CallTrees   []*nodetree.Node            `json:"call_trees"`
		Environment string                      `json:"environment,omitempty"`
		Functions   []nodetree.CallTreeFunction `json:"functions"`
		Goroutines  int                         `json:"goroutines"`
		ID          string                      `json:"report_id"`
		Release     string                      `json:"release,omitempty"`
		Timestamp   int64                       `json:"timestamp"`
	}
)

// New captures and resolves every stack. Stacks without frames are kept
// with no frames so the goroutine count stays accurate.
func New(environment, release string, stacks []livestack.Stack, res *calltrace.Resolver) (Report, error) {
	r := Report{
		ID:          uuid.New().String(),
		Environment: environment,
		Release:     release,
		Timestamp:   time.Now().UTC(),
		Goroutines:  make([]Goroutine, 0, len(stacks)),
	}
	for _, s := range stacks {
		snapshot, err := calltrace.Capture(s.Top)
		if err != nil {
			return Report{}, fmt.Errorf("capturing goroutine %d: %w", s.ID, err)
		}
		frames, err := snapshot.Frames(res)
		if err != nil {
			return Report{}, fmt.Errorf("resolving goroutine %d: %w", s.ID, err)
		}
		r.Goroutines = append(r.Goroutines, Goroutine{ID: s.ID, State: s.State, Frames: frames})
	}
	return r, nil
}

// StoragePath returns where the report with id is stored for environment.
func StoragePath(environment, id string) string {
	if environment == "" {
		return id
	}
	return path.Join(environment, id)
}

func (r Report) StoragePath() string {
	return StoragePath(r.Environment, r.ID)
}

// Goroutine returns the goroutine with id.
func (r Report) Goroutine(id uint64) (Goroutine, bool) {
	for _, g := range r.Goroutines {
		if g.ID == id {
			return g, true
		}
	}
	return Goroutine{}, false
}

// Traceback formats the goroutine the way the runtime prints it, with the
// outermost frame first.
func (g Goroutine) Traceback() string {
	var b strings.Builder
	if g.State != "" {
		fmt.Fprintf(&b, "goroutine %d [%s]:\n", g.ID, g.State)
	} else {
		fmt.Fprintf(&b, "goroutine %d:\n", g.ID)
	}
	b.WriteString(traceback.FormatList(g.Frames))
	return b.String()
}

// Traceback formats every goroutine, separated by blank lines.
func (r Report) Traceback() string {
	tracebacks := make([]string, 0, len(r.Goroutines))
	for _, g := range r.Goroutines {
		tracebacks = append(tracebacks, g.Traceback())
	}
	return strings.Join(tracebacks, "\n")
}

// CallTrees merges the goroutines into call trees.
func (r Report) CallTrees() []*nodetree.Node {
	root := &nodetree.Node{}
	for _, g := range r.Goroutines {
		root.Insert(g.ID, g.Frames)
	}
	return root.Children
}

func (r Report) KafkaMessage() KafkaMessage {
	trees := r.CallTrees()
	results := make(map[uint64]nodetree.CallTreeFunction)
	for _, n := range trees {
		n.CollectFunctions(results)
	}
	functions := make([]nodetree.CallTreeFunction, 0, len(results))
	for _, f := range results {
		functions = append(functions, f)
	}
	sort.Slice(functions, func(i, j int) bool {
		if functions[i].SumSelf != functions[j].SumSelf {
			return functions[i].SumSelf > functions[j].SumSelf
		}
		return functions[i].Fingerprint < functions[j].Fingerprint
	})
	return KafkaMessage{
		CallTrees:   trees,
		Environment: r.Environment,
		Functions:   functions,
		Goroutines:  len(r.Goroutines),
		ID:          r.ID,
		Release:     r.Release,
		Timestamp:   r.Timestamp.Unix(),
	}
}
