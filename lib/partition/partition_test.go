package partition

import (
	"testing"

	"github.com/fine-structures/graphlet/graphlet"
	"github.com/fine-structures/graphlet/lib/digraph"
	"github.com/stretchr/testify/require"
)

// addClique adds a complete directed graph over nodes start..start+n-1.
func addClique(G *digraph.Graph, start, n int) {
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				G.AddEdge(graphlet.NodeID(start+i), graphlet.NodeID(start+j))
			}
		}
	}
}

func testOpts() Opts {
	opts := DefaultOpts()
	opts.EdgeCutoff = 20
	opts.Seed = 7
	return opts
}

func TestWithinCutoff(t *testing.T) {
	G := digraph.NewGraph()
	addClique(G, 0, 4)

	pieces := Decompose(G, DefaultOpts())
	if len(pieces) != 1 || pieces[0] != G {
		t.Fatal("graph within cutoff should be returned as the only piece")
	}
	require.Empty(t, Coverage(G, pieces))
}

func TestTwoCliques(t *testing.T) {
	G := digraph.NewGraph()
	addClique(G, 0, 8)
	addClique(G, 8, 8)
	G.AddEdge(3, 12) // bridge
	G.AddEdge(2, 2)

	pieces := Decompose(G, testOpts())
	require.Len(t, pieces, 2)

	require.Equal(t, 8, pieces[0].NumNodes())
	require.True(t, pieces[0].HasNode(0))
	require.True(t, pieces[0].HasEdge(2, 2), "self loops are kept in node-induced pieces")
	require.Equal(t, 57, pieces[0].NumEdges())

	require.Equal(t, 8, pieces[1].NumNodes())
	require.True(t, pieces[1].HasNode(15))
	require.Equal(t, 56, pieces[1].NumEdges())

	require.Equal(t, []graphlet.Edge{{3, 12}}, Coverage(G, pieces))
}

func TestPiecesCoverEdges(t *testing.T) {
	G := digraph.NewGraph()
	addClique(G, 0, 7)
	addClique(G, 10, 6)
	addClique(G, 20, 3) // too small to be kept
	for i := 0; i < 7; i++ {
		G.AddEdge(graphlet.NodeID(i), graphlet.NodeID(10+i%6))
	}
	G.AddEdge(0, 20)
	G.AddEdge(21, 11)

	pieces := Decompose(G, testOpts())

	// Every edge lands in exactly one piece or in the remainder
	seen := make(map[graphlet.Edge]int)
	nodes := make(map[graphlet.NodeID]int)
	for _, piece := range pieces {
		for _, e := range piece.Edges() {
			require.True(t, G.HasEdge(e.From, e.To))
			seen[e]++
		}
		for _, id := range piece.Nodes() {
			nodes[id]++
		}
	}
	for _, e := range Coverage(G, pieces) {
		seen[e]++
	}
	require.Len(t, seen, G.NumEdges())
	for e, count := range seen {
		if count != 1 {
			t.Fatalf("edge %v covered %d times", e, count)
		}
	}
	for id, count := range nodes {
		if count != 1 {
			t.Fatalf("node %d appears in %d pieces", id, count)
		}
	}
}

func TestKeepBoundaries(t *testing.T) {
	opts := DefaultOpts()

	// 5 nodes is not strictly more than MinNodes
	G := digraph.NewGraph()
	addClique(G, 0, 5)
	_, ok := opts.keep(G, G.Nodes())
	require.False(t, ok)

	// 6 nodes but exactly 10 edges
	G = digraph.NewGraph()
	for i := 0; i < 5; i++ {
		G.AddEdge(graphlet.NodeID(i), graphlet.NodeID(i+1))
		G.AddEdge(graphlet.NodeID(i+1), graphlet.NodeID(i))
	}
	require.Equal(t, 10, G.NumEdges())
	_, ok = opts.keep(G, G.Nodes())
	require.False(t, ok)

	G.AddEdge(0, 5)
	sub, ok := opts.keep(G, G.Nodes())
	require.True(t, ok)
	require.Equal(t, 11, sub.NumEdges())
}

func TestSelfLoopsOnly(t *testing.T) {
	G := digraph.NewGraph()
	for i := 0; i < 30; i++ {
		G.AddEdge(graphlet.NodeID(i), graphlet.NodeID(i))
	}
	require.Nil(t, Communities(G, testOpts()))

	pieces := Decompose(G, testOpts())
	require.Len(t, pieces, 1, "an unsplittable graph is returned whole")
}
