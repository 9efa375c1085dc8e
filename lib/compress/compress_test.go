package compress

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fine-structures/graphlet/graphlet"
	"github.com/fine-structures/graphlet/lib/codec"
	"github.com/fine-structures/graphlet/lib/digraph"
	"github.com/fine-structures/graphlet/lib/library"
	"github.com/fine-structures/graphlet/lib/symmetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const testPatterns = `0,1 1,2 2,0|0,1|0,1,2
0,1 1,0|0,1|0,1
0,1 0,2 0,3|0,1|1,2,3
0,1 1,2|0,1 1,2|
`

func newTestCompressor(t *testing.T, opts Opts, metrics *Metrics) *Compressor {
	lib, err := library.Parse(strings.NewReader(testPatterns))
	if err != nil {
		t.Fatal(err)
	}
	return NewCompressor(lib, opts, metrics)
}

func randomGraph(seed uint64, numNodes, numEdges int) *digraph.Graph {
	rng := rand.New(rand.NewPCG(seed, 99))
	G := digraph.NewGraph()
	G.AddNodeRange(0, numNodes)
	for G.NumEdges() < numEdges {
		u := graphlet.NodeID(rng.IntN(numNodes))
		v := graphlet.NodeID(rng.IntN(numNodes))
		G.AddEdge(u, v)
	}
	return G
}

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

func TestTriangleWithTail(t *testing.T) {
	c := newTestCompressor(t, DefaultOpts(), nil)
	G := digraph.NewGraphFromEdges([]graphlet.Edge{{0, 1}, {1, 2}, {2, 0}, {0, 3}})

	outName := filepath.Join(t.TempDir(), "tri")
	pathname, err := c.Compress(context.Background(), G, outName)
	require.NoError(t, err)
	require.Equal(t, outName+"_compressed.graph", pathname)

	buf, err := os.ReadFile(pathname)
	require.NoError(t, err)
	require.Equal(t, "4\n0,1:0,1,2\n*\n0 3\n", string(buf))

	G2, tokens, err := Decompress(pathname, 0, nil)
	require.NoError(t, err)
	require.True(t, G.EqualEdges(G2))
	require.Equal(t, 4, G2.NumNodes())
	require.Equal(t, 1+5+2, tokens)
}

func TestEmptyGraph(t *testing.T) {
	c := newTestCompressor(t, DefaultOpts(), nil)
	G := digraph.NewGraph()
	G.AddNodeRange(0, 3)

	f, err := c.CompressGraph(context.Background(), G)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, codec.Write(&buf, f))
	require.Equal(t, "3\n*\n", buf.String())

	G2, err := Expand(f, 10)
	require.NoError(t, err)
	require.Equal(t, []graphlet.NodeID{10, 11, 12}, G2.Nodes())
	require.Equal(t, 0, G2.NumEdges())
}

func TestRoundTrip(t *testing.T) {
	opts := DefaultOpts()
	opts.Partition.EdgeCutoff = 150
	opts.Partition.Seed = 3
	opts.Workers = 4

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	c := newTestCompressor(t, opts, metrics)

	for seed := uint64(1); seed <= 4; seed++ {
		G := randomGraph(seed, 120, 600)
		for i := 0; i < 40; i++ {
			G.AddEdge(graphlet.NodeID(i), graphlet.NodeID(i)) // some self loops
		}
		before := G.Copy()

		f, err := c.CompressGraph(context.Background(), G)
		require.NoError(t, err)
		require.True(t, G.EqualEdges(before), "input graph is not modified")
		require.Equal(t, G.NumNodes(), f.NodeCount)

		G2, err := Expand(f, 0)
		require.NoError(t, err)
		require.True(t, G.EqualEdges(G2), "seed %d: edges differ after round trip", seed)

		// and through the file form
		var buf bytes.Buffer
		require.NoError(t, codec.Write(&buf, f))
		f2, err := codec.Read(&buf)
		require.NoError(t, err)
		require.Equal(t, f, f2)
	}

	require.Equal(t, 4.0, testutil.ToFloat64(metrics.Graphs))
	require.Greater(t, testutil.ToFloat64(metrics.Pieces), 0.0)
	require.Greater(t, testutil.ToFloat64(metrics.MatchedEdges), 0.0)
	require.Greater(t, testutil.CollectAndCount(metrics.Instances), 0)
}

func TestWorkersDoNotChangeOutput(t *testing.T) {
	G := randomGraph(11, 200, 900)

	var files []*codec.File
	for _, workers := range []int{1, 3, 8} {
		opts := DefaultOpts()
		opts.Partition.EdgeCutoff = 100
		opts.Workers = workers
		f, err := newTestCompressor(t, opts, nil).CompressGraph(context.Background(), G)
		require.NoError(t, err)
		files = append(files, f)
	}
	require.Equal(t, files[0], files[1])
	require.Equal(t, files[0], files[2])
}

func TestAdjacencyRoundTrip(t *testing.T) {
	c := newTestCompressor(t, DefaultOpts(), nil)
	G := randomGraph(5, 60, 240)

	f, err := c.CompressGraph(context.Background(), G)
	require.NoError(t, err)

	dir := t.TempDir()
	patternPath := filepath.Join(dir, "patterns.txt")
	edgePath := filepath.Join(dir, "edges.txt")

	var patterns, edges bytes.Buffer
	require.NoError(t, codec.WriteAdjacency(&patterns, &edges, f))
	require.NoError(t, os.WriteFile(patternPath, patterns.Bytes(), 0644))
	require.NoError(t, os.WriteFile(edgePath, edges.Bytes(), 0644))

	G2, tokens, err := DecompressAdj(patternPath, edgePath, 0, nil)
	require.NoError(t, err)
	require.True(t, G.EqualEdges(G2))
	require.Equal(t, f.TokenCount(), tokens)
}

func TestErrors(t *testing.T) {
	c := newTestCompressor(t, DefaultOpts(), nil)

	_, err := c.CompressGraph(context.Background(), nil)
	require.True(t, errors.Is(err, graphlet.ErrNilGraph))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.CompressGraph(ctx, randomGraph(1, 10, 20))
	require.True(t, errors.Is(err, context.Canceled))

	dir := t.TempDir()
	_, _, err = Decompress(filepath.Join(dir, "nope_compressed.graph"), 0, nil)
	require.True(t, errors.Is(err, os.ErrNotExist))

	badPath := filepath.Join(dir, "bad_compressed.graph")
	require.NoError(t, os.WriteFile(badPath, []byte("3\n0,1:0,1,2\n"), 0644))
	_, _, err = Decompress(badPath, 0, nil)
	require.True(t, errors.Is(err, graphlet.ErrMissingSentinel))

	require.NoError(t, os.WriteFile(badPath, []byte("3\n0,1:0,1 1,2\n*\n"), 0644))
	_, _, err = Decompress(badPath, 0, nil)
	require.True(t, errors.Is(err, graphlet.ErrBadGenerator))
}

func TestInconsistentPatternsAreNotUsed(t *testing.T) {
	// The first two lines do not regenerate their own edges
	lib, err := library.Parse(strings.NewReader(
		"0,1 1,2 2,0|0,1|0,1\n" +
			"0,1 2,3 0,3|0,1|0,2 1,3\n" +
			testPatterns,
	))
	require.NoError(t, err)
	c := NewCompressor(lib, DefaultOpts(), nil)

	triangle := digraph.NewGraphFromEdges([]graphlet.Edge{{0, 1}, {1, 2}, {2, 0}})
	f, err := c.CompressGraph(context.Background(), triangle)
	require.NoError(t, err)
	require.Len(t, f.Instances, 1)
	require.Len(t, f.Instances[0].Generators, 1)
	require.Len(t, f.Instances[0].Generators[0], 3)

	G2, err := Expand(f, 0)
	require.NoError(t, err)
	require.True(t, triangle.EqualEdges(G2))

	for seed := uint64(1); seed <= 10; seed++ {
		G := randomGraph(seed, 40, 160)
		f, err := c.CompressGraph(context.Background(), G)
		require.NoError(t, err)
		G2, err := Expand(f, 0)
		require.NoError(t, err)
		require.True(t, G.EqualEdges(G2), "seed %d: edges differ after round trip", seed)
	}
}

func TestSmallCommunityStaysLiteral(t *testing.T) {
	opts := DefaultOpts()
	opts.Partition.EdgeCutoff = 20
	opts.Partition.Seed = 7
	c := newTestCompressor(t, opts, nil)

	G := digraph.NewGraph()
	addClique(G, 0, 8)
	addClique(G, 8, 8)
	addClique(G, 20, 5) // 5 nodes is not more than MinNodes
	G.AddEdge(3, 12)
	G.AddEdge(4, 20)

	f, err := c.CompressGraph(context.Background(), G)
	require.NoError(t, err)
	require.NotEmpty(t, f.Instances)

	small := func(e graphlet.Edge) bool {
		return e.From >= 20 || e.To >= 20
	}
	for _, inst := range f.Instances {
		edges, err := symmetry.ExpandMapped(inst)
		require.NoError(t, err)
		for _, e := range edges {
			require.False(t, small(e), "edge %v of the 5-node community is inside an instance", e)
		}
	}

	literals := digraph.NewGraphFromEdges(f.Literals)
	count := 0
	for _, e := range G.Edges() {
		if small(e) {
			require.True(t, literals.HasEdge(e.From, e.To), "edge %v is not a literal", e)
			count++
		}
	}
	require.Equal(t, 21, count)

	G2, err := Expand(f, 0)
	require.NoError(t, err)
	require.True(t, G.EqualEdges(G2))
}
