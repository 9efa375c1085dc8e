package graphlet

import (
	"sort"
	"strconv"
)

const (

	// SentinelLine separates encoded instances from literal edges in a compressed graph file.
	SentinelLine = "*"

	// CompressedSuffix is appended to an output name to form the compressed graph pathname.
	CompressedSuffix = "_compressed.graph"
)

// NodeID identifies a graph node.  Pattern-local indices (0..k-1) use the same type.
type NodeID int64

// Edge is a directed edge (From -> To).
type Edge struct {
	From NodeID
	To   NodeID
}

// CompareEdges orders edges by From and then by To.
func CompareEdges(a, b Edge) int {
	switch {
	case a.From < b.From:
		return -1
	case a.From > b.From:
		return 1
	case a.To < b.To:
		return -1
	case a.To > b.To:
		return 1
	}
	return 0
}

// SortEdges sorts the given edges in place using CompareEdges.
func SortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		return CompareEdges(edges[i], edges[j]) < 0
	})
}

// Cycle is a single cyclic permutation over node indices: Cycle[p] maps to Cycle[p+1], the last
// entry maps to the first, and any index not listed is a fixed point.
type Cycle []NodeID

// Pattern is a graphlet in a pattern library.
//
// Residual is a subset of Edges from which all of Edges is recovered by applying Generators.
// An empty Generators implies Residual equals Edges.
type Pattern struct {
	ID         int // zero-based position in the library
	Edges      []Edge
	Residual   []Edge
	Generators []Cycle
}

// NumNodes returns the number of local node indices used by this pattern (max index + 1).
func (P *Pattern) NumNodes() int {
	max := NodeID(-1)
	for _, e := range P.Edges {
		if e.From > max {
			max = e.From
		}
		if e.To > max {
			max = e.To
		}
	}
	return int(max + 1)
}

// MapInstance translates this pattern's residual edges and generators into real node IDs,
// where mapping[i] is the graph node matched to local index i.
func (P *Pattern) MapInstance(mapping []NodeID) Instance {
	inst := Instance{
		Residual: make([]Edge, len(P.Residual)),
	}
	for i, e := range P.Residual {
		inst.Residual[i] = Edge{mapping[e.From], mapping[e.To]}
	}
	if len(P.Generators) == 0 {
		return inst
	}
	inst.Generators = make([]Cycle, len(P.Generators))
	for i, cycle := range P.Generators {
		mapped := make(Cycle, len(cycle))
		for j, idx := range cycle {
			mapped[j] = mapping[idx]
		}
		inst.Generators[i] = mapped
	}
	return inst
}

// Instance is one occurrence of a pattern in a real graph, expressed in real node IDs.
type Instance struct {
	Residual   []Edge
	Generators []Cycle
}

// AppendTo appends the compressed file form of this instance ("u,v u,v:a,b,c d,e") without a newline.
func (inst Instance) AppendTo(dst []byte) []byte {
	dst = AppendEdgeString(dst, inst.Residual)
	dst = append(dst, ':')
	dst = AppendGenerators(dst, inst.Generators)
	return dst
}

func (inst Instance) String() string {
	return string(inst.AppendTo(make([]byte, 0, 64)))
}

// NumTokens is the approximate token count of this instance: two per residual edge plus one per generator entry.
func (inst Instance) NumTokens() int {
	count := 2 * len(inst.Residual)
	for _, cycle := range inst.Generators {
		count += len(cycle)
	}
	if len(inst.Generators) == 0 {
		count++ // an empty generator field still reads as one (empty) entry
	}
	return count
}

// AppendEdgeString appends space-separated "u,v" pairs.
func AppendEdgeString(dst []byte, edges []Edge) []byte {
	for i, e := range edges {
		if i > 0 {
			dst = append(dst, ' ')
		}
		dst = strconv.AppendInt(dst, int64(e.From), 10)
		dst = append(dst, ',')
		dst = strconv.AppendInt(dst, int64(e.To), 10)
	}
	return dst
}

// AppendGenerators appends space-separated groups of comma-separated indices.
func AppendGenerators(dst []byte, generators []Cycle) []byte {
	for i, cycle := range generators {
		if i > 0 {
			dst = append(dst, ' ')
		}
		for j, idx := range cycle {
			if j > 0 {
				dst = append(dst, ',')
			}
			dst = strconv.AppendInt(dst, int64(idx), 10)
		}
	}
	return dst
}

// AppendLiteral appends a literal edge line ("u v\n").
func AppendLiteral(dst []byte, e Edge) []byte {
	dst = strconv.AppendInt(dst, int64(e.From), 10)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, int64(e.To), 10)
	dst = append(dst, '\n')
	return dst
}
