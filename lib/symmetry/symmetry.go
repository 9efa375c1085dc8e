package symmetry

import (
	"fmt"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/fine-structures/graphlet/graphlet"
)

type NodeID = graphlet.NodeID
type Edge = graphlet.Edge

// Permutation is the successor table formed by one or more disjoint cycles.
// Indices absent from every cycle are fixed points.
type Permutation struct {
	next      map[NodeID]NodeID
	numCycles int
	cycleLen  int // length of the sole cycle when numCycles == 1
}

// NewPermutation precomputes the successor function of the given generators.
//
// An empty cycle, or an index listed more than once (within a cycle or across cycles), is a format error.
func NewPermutation(generators []graphlet.Cycle) (Permutation, error) {
	P := Permutation{
		numCycles: len(generators),
	}
	if len(generators) == 0 {
		return P, nil
	}

	size := 0
	for _, cycle := range generators {
		size += len(cycle)
	}
	P.next = make(map[NodeID]NodeID, size)

	for gi, cycle := range generators {
		L := len(cycle)
		if L == 0 {
			return Permutation{}, &graphlet.FormatError{
				Kind: graphlet.ErrBadGenerator,
				Msg:  fmt.Sprintf("generator %d is empty", gi+1),
			}
		}
		for p, idx := range cycle {
			if _, dupe := P.next[idx]; dupe {
				return Permutation{}, &graphlet.FormatError{
					Kind: graphlet.ErrBadGenerator,
					Msg:  fmt.Sprintf("index %d appears more than once across generators", idx),
				}
			}
			P.next[idx] = cycle[(p+1)%L]
		}
		P.cycleLen = L
	}

	return P, nil
}

// Apply returns the image of id.
func (P Permutation) Apply(id NodeID) NodeID {
	if img, ok := P.next[id]; ok {
		return img
	}
	return id
}

// ApplyEdge maps both endpoints of e.
func (P Permutation) ApplyEdge(e Edge) Edge {
	return Edge{P.Apply(e.From), P.Apply(e.To)}
}

// IsIdentity returns true if there are no generators.
func (P Permutation) IsIdentity() bool {
	return P.numCycles == 0
}

// Orbit appends to dst the images of e under repeated application of P, ending with e itself.
//
// For a single generator of length L, exactly L images are produced (some may repeat when e's orbit is shorter).
// For multiple generators all cycles step in lock-step, and images are produced until one reappears.
func (P Permutation) Orbit(dst []Edge, e Edge) []Edge {
	switch {
	case P.numCycles == 0:
		dst = append(dst, e)

	case P.numCycles == 1:
		cur := e
		for i := 0; i < P.cycleLen; i++ {
			cur = P.ApplyEdge(cur)
			dst = append(dst, cur)
		}

	default:
		start := len(dst)
		cur := e
		for {
			cur = P.ApplyEdge(cur)
			seen := false
			for _, prev := range dst[start:] {
				if prev == cur {
					seen = true
					break
				}
			}
			if seen {
				break
			}
			dst = append(dst, cur)
		}
	}
	return dst
}

func edgeComparator(a, b interface{}) int {
	return graphlet.CompareEdges(a.(Edge), b.(Edge))
}

// Expand regenerates a full edge set from residual edges and symmetry generators.
// The returned edges are distinct and sorted.
func Expand(residual []Edge, generators []graphlet.Cycle) ([]Edge, error) {
	P, err := NewPermutation(generators)
	if err != nil {
		return nil, err
	}

	set := treeset.NewWith(edgeComparator)
	var orbit []Edge
	for _, e := range residual {
		orbit = P.Orbit(orbit[:0], e)
		for _, img := range orbit {
			set.Add(img)
		}
	}

	edges := make([]Edge, 0, set.Size())
	for _, v := range set.Values() {
		edges = append(edges, v.(Edge))
	}
	return edges, nil
}

// ExpandLocal expands a pattern's residual edges over local indices into the pattern's full edge set.
// Used offline to validate a pattern library.
func ExpandLocal(residual []Edge, generators []graphlet.Cycle) ([]Edge, error) {
	return Expand(residual, generators)
}

// ExpandMapped expands a matched instance (real node IDs) back into the real edges it covers.
func ExpandMapped(inst graphlet.Instance) ([]Edge, error) {
	return Expand(inst.Residual, inst.Generators)
}
