package compress

import (
	"os"
	"time"

	"github.com/fine-structures/graphlet/graphlet"
	"github.com/fine-structures/graphlet/lib/codec"
	"github.com/fine-structures/graphlet/lib/digraph"
	"github.com/fine-structures/graphlet/lib/symmetry"
	"github.com/pkg/errors"
)

// Expand rebuilds the graph encoded by f.  Nodes startingNode .. startingNode+NodeCount-1 are added first; instance
// and literal node IDs are taken as written and are not offset.
func Expand(f *codec.File, startingNode graphlet.NodeID) (*digraph.Graph, error) {
	G := digraph.NewGraph()
	G.AddNodeRange(startingNode, f.NodeCount)

	for i, inst := range f.Instances {
		edges, err := symmetry.ExpandMapped(inst)
		if err != nil {
			return nil, errors.Wrapf(err, "instance %d", i+1)
		}
		for _, e := range edges {
			G.AddEdge(e.From, e.To)
		}
	}
	for _, e := range f.Literals {
		G.AddEdge(e.From, e.To)
	}
	return G, nil
}

// Decompress reads a compressed graph file and rebuilds its graph, also returning the file's token count.
func Decompress(pathname string, startingNode graphlet.NodeID, metrics *Metrics) (*digraph.Graph, int, error) {
	startTime := time.Now()

	file, err := os.Open(pathname)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	f, err := codec.Read(file)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "compressed graph %q", pathname)
	}

	G, err := Expand(f, startingNode)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "compressed graph %q", pathname)
	}
	if metrics != nil {
		metrics.DecompressDur.Observe(time.Since(startTime).Seconds())
	}
	return G, f.TokenCount(), nil
}

// DecompressAdj is Decompress for the adjacency variant, where instances and literals are in separate files.
func DecompressAdj(patternPath, edgePath string, startingNode graphlet.NodeID, metrics *Metrics) (*digraph.Graph, int, error) {
	startTime := time.Now()

	patterns, err := os.Open(patternPath)
	if err != nil {
		return nil, 0, err
	}
	defer patterns.Close()

	edges, err := os.Open(edgePath)
	if err != nil {
		return nil, 0, err
	}
	defer edges.Close()

	f, err := codec.ReadAdjacency(patterns, edges)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "adjacency files %q, %q", patternPath, edgePath)
	}

	G, err := Expand(f, startingNode)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "adjacency file %q", patternPath)
	}
	if metrics != nil {
		metrics.DecompressDur.Observe(time.Since(startTime).Seconds())
	}
	return G, f.TokenCount(), nil
}
