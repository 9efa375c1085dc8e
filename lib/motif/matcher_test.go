package motif

import (
	"strings"
	"testing"

	"github.com/fine-structures/graphlet/graphlet"
	"github.com/fine-structures/graphlet/lib/digraph"
	"github.com/fine-structures/graphlet/lib/library"
	"github.com/fine-structures/graphlet/lib/symmetry"
	"github.com/stretchr/testify/require"
)

const testPatterns = `0,1 1,2 2,0|0,1|0,1,2
0,1 1,0|0,1|0,1
0,0 0,1|0,0 0,1|
0,1 0,2 0,3|0,1|1,2,3
`

func loadTestLibrary(t *testing.T) *library.Library {
	lib, err := library.Parse(strings.NewReader(testPatterns))
	if err != nil {
		t.Fatal(err)
	}
	return lib
}

func graphOf(edges ...graphlet.Edge) *digraph.Graph {
	return digraph.NewGraphFromEdges(edges)
}

// checkConservation verifies that instances and leftovers together cover exactly the piece's edges, each once.
func checkConservation(t *testing.T, piece *digraph.Graph, instances []graphlet.Instance, leftovers []graphlet.Edge) {
	covered := make(map[graphlet.Edge]int)
	for _, inst := range instances {
		edges, err := symmetry.ExpandMapped(inst)
		require.NoError(t, err)
		for _, e := range edges {
			covered[e]++
		}
	}
	for _, e := range leftovers {
		covered[e]++
	}
	require.Len(t, covered, piece.NumEdges())
	for e, count := range covered {
		if count != 1 || !piece.HasEdge(e.From, e.To) {
			t.Fatalf("edge %v covered %d times", e, count)
		}
	}
}

func TestTriangleWithTail(t *testing.T) {
	m := NewMatcher(loadTestLibrary(t))

	piece := graphOf(graphlet.Edge{0, 1}, graphlet.Edge{1, 2}, graphlet.Edge{2, 0}, graphlet.Edge{0, 3})
	instances, leftovers := m.CompressPiece(piece)

	require.Len(t, instances, 1)
	require.Equal(t, "0,1:0,1,2", instances[0].String())
	require.Equal(t, []graphlet.Edge{{0, 3}}, leftovers)
	require.Equal(t, 4, piece.NumEdges(), "piece is not modified")

	checkConservation(t, piece, instances, leftovers)
}

func TestPatternPriority(t *testing.T) {
	m := NewMatcher(loadTestLibrary(t))

	matched := make(map[int]int)
	m.OnMatch = func(P *graphlet.Pattern, covered int) {
		matched[P.ID] += covered
	}

	piece := graphOf(
		graphlet.Edge{0, 1}, graphlet.Edge{1, 2}, graphlet.Edge{2, 0}, // triangle
		graphlet.Edge{3, 4}, graphlet.Edge{4, 3}, // mutual pair
		graphlet.Edge{5, 5}, graphlet.Edge{5, 6}, // loop with tail
		graphlet.Edge{7, 8}, graphlet.Edge{7, 9}, graphlet.Edge{7, 10}, // star
		graphlet.Edge{11, 12},
	)
	instances, leftovers := m.CompressPiece(piece)

	require.Len(t, instances, 4)
	require.Equal(t, "0,1:0,1,2", instances[0].String())
	require.Equal(t, "3,4:3,4", instances[1].String())
	require.Equal(t, "5,5 5,6:", instances[2].String())
	require.Equal(t, "7,8:8,9,10", instances[3].String())
	require.Equal(t, []graphlet.Edge{{11, 12}}, leftovers)
	require.Equal(t, map[int]int{0: 3, 1: 2, 2: 2, 3: 3}, matched)

	checkConservation(t, piece, instances, leftovers)
}

func TestSharedEdge(t *testing.T) {
	m := NewMatcher(loadTestLibrary(t))

	// two triangles sharing the 0,1 edge: only one can be taken
	piece := graphOf(
		graphlet.Edge{0, 1}, graphlet.Edge{1, 2}, graphlet.Edge{2, 0},
		graphlet.Edge{1, 3}, graphlet.Edge{3, 0},
	)
	instances, leftovers := m.CompressPiece(piece)
	require.Len(t, instances, 1)
	require.Equal(t, []graphlet.Edge{{1, 3}, {3, 0}}, leftovers)
	checkConservation(t, piece, instances, leftovers)
}

func TestRepeatedMatches(t *testing.T) {
	m := NewMatcher(loadTestLibrary(t))

	piece := digraph.NewGraph()
	for i := 0; i < 10; i++ {
		base := graphlet.NodeID(3 * i)
		piece.AddEdge(base, base+1)
		piece.AddEdge(base+1, base+2)
		piece.AddEdge(base+2, base)
		if i > 0 {
			piece.AddEdge(base, base-3) // chain the triangles together
		}
	}

	instances, leftovers := m.CompressPiece(piece)
	require.Len(t, instances, 10)
	require.Len(t, leftovers, 9)
	checkConservation(t, piece, instances, leftovers)

	// Leftovers contain no further instance of any pattern
	rest := digraph.NewGraphFromEdges(leftovers)
	for _, P := range m.Library().Patterns() {
		if _, found := Find(rest, &P); found {
			t.Fatalf("pattern %d still matches leftovers", P.ID)
		}
	}
}

func TestFind(t *testing.T) {
	lib, err := library.Parse(strings.NewReader("0,1 1,2|0,1 1,2|\n0,1 1,0|0,1|0,1\n"))
	require.NoError(t, err)

	triangle := graphOf(graphlet.Edge{10, 11}, graphlet.Edge{11, 12}, graphlet.Edge{12, 10})

	// a directed path embeds into a directed triangle (not induced)
	mapping, found := Find(triangle, lib.Pattern(0))
	require.True(t, found)
	require.Len(t, mapping, 3)
	require.True(t, triangle.HasEdge(mapping[0], mapping[1]))
	require.True(t, triangle.HasEdge(mapping[1], mapping[2]))

	// direction matters
	_, found = Find(triangle, lib.Pattern(1))
	require.False(t, found)

	_, found = Find(digraph.NewGraph(), lib.Pattern(0))
	require.False(t, found)
}

func TestSkipsMalformedPatterns(t *testing.T) {
	lib, err := library.Parse(strings.NewReader("0,1 1,0|0,1|0,5\n0,1 1,0|0,1|0,1\n"))
	require.NoError(t, err)

	m := NewMatcher(lib)
	instances, leftovers := m.CompressPiece(graphOf(graphlet.Edge{0, 1}, graphlet.Edge{1, 0}))
	require.Len(t, instances, 1)
	require.Equal(t, "0,1:0,1", instances[0].String())
	require.Empty(t, leftovers)
}

func TestSkipsInconsistentPatterns(t *testing.T) {
	lib, err := library.Parse(strings.NewReader(
		"0,1 1,2 2,0|0,1|0,1\n" + // generator only swaps 0,1: expands to 0,1 1,0
			"0,1000000|0,1000000|\n" +
			"0,1 1,2 2,0|0,1|0,1,2\n",
	))
	require.NoError(t, err)

	m := NewMatcher(lib)
	piece := graphOf(graphlet.Edge{0, 1}, graphlet.Edge{1, 2}, graphlet.Edge{2, 0})
	instances, leftovers := m.CompressPiece(piece)
	require.Len(t, instances, 1)
	require.Len(t, instances[0].Generators, 1)
	require.Len(t, instances[0].Generators[0], 3)
	require.Empty(t, leftovers)
	checkConservation(t, piece, instances, leftovers)

	_, found := Find(piece, lib.Pattern(1))
	require.False(t, found)
}
