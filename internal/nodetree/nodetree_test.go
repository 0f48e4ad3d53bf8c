package nodetree

import (
	"hash/fnv"
	"testing"

	"github.com/getsentry/calltrace/internal/calltrace"
	"github.com/getsentry/calltrace/internal/code"
	"github.com/getsentry/calltrace/internal/frame"
	"github.com/getsentry/calltrace/internal/testutil"
)

var (
	mainUnit   = code.NewTable("main.main", "/app/main.go", code.LineEntry{Offset: 0, Line: 10})
	serveUnit  = code.NewTable("main.serve", "/app/main.go", code.LineEntry{Offset: 0, Line: 20}, code.LineEntry{Offset: 8, Line: 22})
	workerUnit = code.NewTable("main.worker", "/app/main.go", code.LineEntry{Offset: 0, Line: 30})
	parkUnit   = code.NewTable("runtime.gopark", "/go/src/runtime/proc.go", code.LineEntry{Offset: 0, Line: 398})
)

func capture(t *testing.T, frames ...*testutil.Frame) *calltrace.Snapshot {
	t.Helper()
	s, err := calltrace.Capture(testutil.Stack(frames...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func pathFingerprint(frames ...frame.Frame) uint64 {
	h := fnv.New64()
	for _, f := range frames {
		f.WriteToHash(h)
	}
	return h.Sum64()
}

func functionFingerprint(pkg, name string) uint64 {
	h := fnv.New64()
	n := Node{Package: pkg, Name: name}
	n.WriteToHash(h)
	return h.Sum64()
}

func TestFromSnapshots(t *testing.T) {
	snapshots := map[uint64]*calltrace.Snapshot{
		1: capture(t, &testutil.Frame{Unit: mainUnit}, &testutil.Frame{Unit: serveUnit, Off: 2}),
		7: capture(t, &testutil.Frame{Unit: mainUnit}, &testutil.Frame{Unit: serveUnit, Off: 2}, &testutil.Frame{Unit: parkUnit}),
		3: capture(t, &testutil.Frame{Unit: mainUnit}, &testutil.Frame{Unit: serveUnit, Off: 9}, &testutil.Frame{Unit: parkUnit}),
		4: capture(t, &testutil.Frame{Unit: workerUnit}, &testutil.Frame{Unit: parkUnit}),
		5: capture(t, &testutil.Frame{Unit: workerUnit}, &testutil.Frame{Unit: parkUnit}),
	}
	roots, err := FromSnapshots(snapshots, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mainF := frame.New("/app/main.go", "main.main", 10)
	serve20 := frame.New("/app/main.go", "main.serve", 20)
	serve22 := frame.New("/app/main.go", "main.serve", 22)
	worker := frame.New("/app/main.go", "main.worker", 30)
	park := frame.New("/go/src/runtime/proc.go", "runtime.gopark", 398)

	want := []*Node{
		{
			Count:         3,
			Fingerprint:   pathFingerprint(mainF),
			IsApplication: true,
			Line:          10,
			Name:          "main.main",
			Package:       "main",
			Path:          "/app/main.go",
			Frame:         mainF,
			Children: []*Node{
				{
					Count:         2,
					Fingerprint:   pathFingerprint(mainF, serve20),
					Goroutines:    []uint64{1},
					IsApplication: true,
					Line:          20,
					Name:          "main.serve",
					Package:       "main",
					Path:          "/app/main.go",
					Frame:         serve20,
					Children: []*Node{
						{
							Count:       1,
							Fingerprint: pathFingerprint(mainF, serve20, park),
							Goroutines:  []uint64{7},
							Line:        398,
							Name:        "runtime.gopark",
							Package:     "runtime",
							Path:        "/go/src/runtime/proc.go",
							Frame:       park,
						},
					},
				},
				{
					Count:         1,
					Fingerprint:   pathFingerprint(mainF, serve22),
					IsApplication: true,
					Line:          22,
					Name:          "main.serve",
					Package:       "main",
					Path:          "/app/main.go",
					Frame:         serve22,
					Children: []*Node{
						{
							Count:       1,
							Fingerprint: pathFingerprint(mainF, serve22, park),
							Goroutines:  []uint64{3},
							Line:        398,
							Name:        "runtime.gopark",
							Package:     "runtime",
							Path:        "/go/src/runtime/proc.go",
							Frame:       park,
						},
					},
				},
			},
		},
		{
			Count:         2,
			Fingerprint:   pathFingerprint(worker),
			IsApplication: true,
			Line:          30,
			Name:          "main.worker",
			Package:       "main",
			Path:          "/app/main.go",
			Frame:         worker,
			Children: []*Node{
				{
					Count:       2,
					Fingerprint: pathFingerprint(worker, park),
					Goroutines:  []uint64{4, 5},
					Line:        398,
					Name:        "runtime.gopark",
					Package:     "runtime",
					Path:        "/go/src/runtime/proc.go",
					Frame:       park,
				},
			},
		},
	}
	if diff := testutil.Diff(roots, want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestFromSnapshotsEmpty(t *testing.T) {
	roots, err := FromSnapshots(map[uint64]*calltrace.Snapshot{2: capture(t)}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roots) != 0 {
		t.Fatalf("expected no roots, got %d", len(roots))
	}
}

func TestNodeTreeCollectFunctions(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want map[uint64]CallTreeFunction
	}{
		{
			name: "single goroutine",
			node: Node{
				Name:          "main.main",
				Package:       "main",
				IsApplication: true,
				Goroutines:    []uint64{1},
			},
			want: map[uint64]CallTreeFunction{
				functionFingerprint("main", "main.main"): {
					Fingerprint: functionFingerprint("main", "main.main"),
					Function:    "main.main",
					InApp:       true,
					Package:     "main",
					SelfCounts:  []int{1},
					SumSelf:     1,
				},
			},
		},
		{
			name: "nodes without goroutines are left out",
			node: Node{
				Name:    "main.main",
				Package: "main",
				Children: []*Node{
					{
						Name:       "runtime.gopark",
						Package:    "runtime",
						Goroutines: []uint64{2, 3},
					},
				},
			},
			want: map[uint64]CallTreeFunction{
				functionFingerprint("runtime", "runtime.gopark"): {
					Fingerprint: functionFingerprint("runtime", "runtime.gopark"),
					Function:    "runtime.gopark",
					Package:     "runtime",
					SelfCounts:  []int{2},
					SumSelf:     2,
				},
			},
		},
		{
			name: "same function in different places",
			node: Node{
				Name:    "main.main",
				Package: "main",
				Children: []*Node{
					{
						Name:       "runtime.gopark",
						Package:    "runtime",
						Goroutines: []uint64{2},
					},
					{
						Name:    "main.serve",
						Package: "main",
						Children: []*Node{
							{
								Name:       "runtime.gopark",
								Package:    "runtime",
								Goroutines: []uint64{4, 5, 6},
							},
						},
					},
				},
			},
			want: map[uint64]CallTreeFunction{
				functionFingerprint("runtime", "runtime.gopark"): {
					Fingerprint: functionFingerprint("runtime", "runtime.gopark"),
					Function:    "runtime.gopark",
					Package:     "runtime",
					SelfCounts:  []int{1, 3},
					SumSelf:     4,
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make(map[uint64]CallTreeFunction)
			tt.node.CollectFunctions(results)
			if diff := testutil.Diff(results, tt.want); diff != "" {
				t.Fatalf("Result mismatch: got - want +\n%s", diff)
			}
		})
	}
}

func TestNodeTreeCollapse(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want []*Node
	}{
		{
			name: "unknown frame is replaced by its children",
			node: Node{
				Count: 1,
				Children: []*Node{
					{Name: "main.main", Count: 1, IsApplication: true, Goroutines: []uint64{1}},
				},
			},
			want: []*Node{
				{Name: "main.main", Count: 1, IsApplication: true, Goroutines: []uint64{1}},
			},
		},
		{
			name: "application parent and child keep the child",
			node: Node{
				Name:          "main.main",
				Count:         2,
				IsApplication: true,
				Children: []*Node{
					{Name: "main.serve", Count: 2, IsApplication: true, Goroutines: []uint64{1, 2}},
				},
			},
			want: []*Node{
				{Name: "main.serve", Count: 2, IsApplication: true, Goroutines: []uint64{1, 2}},
			},
		},
		{
			name: "system child of an application frame is skipped",
			node: Node{
				Name:          "main.main",
				Count:         2,
				IsApplication: true,
				Children: []*Node{
					{Name: "runtime.gopark", Count: 2, Goroutines: []uint64{1, 2}},
				},
			},
			want: []*Node{
				{Name: "main.main", Count: 2, IsApplication: true, Goroutines: []uint64{1, 2}},
			},
		},
		{
			name: "system parent is skipped",
			node: Node{
				Name:  "runtime.main",
				Count: 1,
				Children: []*Node{
					{Name: "main.main", Count: 1, IsApplication: true, Goroutines: []uint64{1}},
				},
			},
			want: []*Node{
				{Name: "main.main", Count: 1, IsApplication: true, Goroutines: []uint64{1}},
			},
		},
		{
			name: "child holding part of the goroutines is kept",
			node: Node{
				Name:          "main.main",
				Count:         2,
				IsApplication: true,
				Goroutines:    []uint64{1},
				Children: []*Node{
					{Name: "main.serve", Count: 1, IsApplication: true, Goroutines: []uint64{2}},
				},
			},
			want: []*Node{
				{
					Name:          "main.main",
					Count:         2,
					IsApplication: true,
					Goroutines:    []uint64{1},
					Children: []*Node{
						{Name: "main.serve", Count: 1, IsApplication: true, Goroutines: []uint64{2}},
					},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := testutil.Diff(tt.node.Collapse(), tt.want); diff != "" {
				t.Fatalf("Result mismatch: got - want +\n%s", diff)
			}
		})
	}
}
