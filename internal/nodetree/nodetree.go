// Package nodetree merges the stacks of many goroutines into one call tree.
package nodetree

import (
	"hash"
	"hash/fnv"
	"path"
	"sort"

	"github.com/getsentry/calltrace/internal/calltrace"
	"github.com/getsentry/calltrace/internal/frame"
)

type (
	Node struct {
		Count         int      `json:"count"`
		Fingerprint   uint64   `json:"fingerprint"`
		Goroutines    []uint64 `json:"goroutines,omitempty"`
		IsApplication bool     `json:"is_application"`
		Line          int      `json:"line,omitempty"`
		Name          string   `json:"name"`
		Package       string   `json:"package"`
		Path          string   `json:"path,omitempty"`
		Children      []*Node  `json:"children,omitempty"`

		Frame frame.Frame `json:"-"`
	}

	// CallTreeFunction aggregates the goroutines found executing a function,
	// wherever it shows up in the tree.
	CallTreeFunction struct {
		Fingerprint uint64 `json:"fingerprint"`
		Function    string `json:"function"`
		InApp       bool   `json:"in_app"`
		Package     string `json:"package"`
		SelfCounts  []int  `json:"self_counts"`
		SumSelf     int    `json:"sum_self"`
	}
)

func NodeFromFrame(f frame.Frame, fingerprint uint64) *Node {
	return &Node{
		Fingerprint:   fingerprint,
		IsApplication: f.IsApplicationFrame(),
		Line:          f.Line,
		Name:          f.Function,
		Package:       PackageBaseName(f.Package),
		Path:          f.File,
		Frame:         f,
	}
}

func (n *Node) WriteToHash(h hash.Hash) {
	if n.Package == "" && n.Name == "" {
		h.Write([]byte("-"))
	} else {
		h.Write([]byte(n.Package))
		h.Write([]byte(n.Name))
	}
}

// PackageBaseName returns the basename of the package if package is a path.
func PackageBaseName(p string) string {
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// FromSnapshots resolves every snapshot and merges them, outermost frame
// first, into trees. Frames are merged when their whole path from the root
// matches.
func FromSnapshots(snapshots map[uint64]*calltrace.Snapshot, res *calltrace.Resolver) ([]*Node, error) {
	ids := make([]uint64, 0, len(snapshots))
	for id := range snapshots {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	root := &Node{}
	for _, id := range ids {
		frames, err := snapshots[id].Frames(res)
		if err != nil {
			return nil, err
		}
		root.Insert(id, frames)
	}
	return root.Children, nil
}

// Insert adds the stack of goroutine id below n.
func (n *Node) Insert(id uint64, frames []frame.Frame) {
	h := fnv.New64()
	current := n
	for _, f := range frames {
		f.WriteToHash(h)
		fingerprint := h.Sum64()
		var next *Node
		for _, c := range current.Children {
			if c.Fingerprint == fingerprint {
				next = c
				break
			}
		}
		if next == nil {
			next = NodeFromFrame(f, fingerprint)
			current.Children = append(current.Children, next)
		}
		next.Count++
		current = next
	}
	if current != n {
		current.Goroutines = append(current.Goroutines, id)
	}
}

// CollectFunctions adds the number of goroutines stopped in each function
// of the tree to results, keyed by a fingerprint of package and function.
func (n *Node) CollectFunctions(results map[uint64]CallTreeFunction) {
	for _, c := range n.Children {
		c.CollectFunctions(results)
	}
	self := len(n.Goroutines)
	if self == 0 || n.Name == "" {
		return
	}
	h := fnv.New64()
	n.WriteToHash(h)
	fingerprint := h.Sum64()
	function, exists := results[fingerprint]
	if !exists {
		function = CallTreeFunction{
			Fingerprint: fingerprint,
			Function:    n.Name,
			InApp:       n.IsApplication,
			Package:     n.Package,
		}
	}
	function.SelfCounts = append(function.SelfCounts, self)
	function.SumSelf += self
	results[fingerprint] = function
}

func (n Node) Collapse() []*Node {
	// always collapse the children first, since pruning may reduce
	// the number of children
	children := make([]*Node, 0, len(n.Children))
	for _, child := range n.Children {
		children = append(children, child.Collapse()...)
	}
	n.Children = children

	// unknown frames are replaced by their children
	if n.Name == "" {
		return n.Children
	}

	// A single child holding every goroutine of its parent is merged with
	// it, keeping the innermost application frame.
	if len(n.Children) == 1 && len(n.Goroutines) == 0 {
		child := n.Children[0]
		if n.Count == child.Count {
			if n.IsApplication {
				if child.IsApplication {
					n = *child
				} else {
					n.Children = child.Children
					n.Goroutines = child.Goroutines
				}
			} else {
				n = *child
			}
		}
	}

	return []*Node{&n}
}
