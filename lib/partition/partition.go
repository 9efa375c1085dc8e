package partition

import (
	"math/rand/v2"
	"sort"

	"github.com/emirpasic/gods/stacks/arraystack"
	"github.com/fine-structures/graphlet/graphlet"
	"github.com/fine-structures/graphlet/lib/digraph"
	"github.com/plan-systems/klog"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"
)

// Opts control how a large graph is split into pieces.
type Opts struct {
	EdgeCutoff int     // a graph with at most this many edges is not split
	MinNodes   int     // a community must have strictly more nodes than this to be kept
	MinEdges   int     // a kept community's subgraph must have strictly more edges than this
	Resolution float64 // modularity resolution
	Seed       uint64  // seeds community detection so results are reproducible
}

func DefaultOpts() Opts {
	return Opts{
		EdgeCutoff: 30000,
		MinNodes:   5,
		MinEdges:   10,
		Resolution: 1.0,
	}
}

// keep returns the subgraph of G induced by comm if it is large enough to become (or be split into) pieces.
func (opts *Opts) keep(G *digraph.Graph, comm []graphlet.NodeID) (*digraph.Graph, bool) {
	if len(comm) <= opts.MinNodes {
		return nil, false
	}
	sub := G.Subgraph(comm)
	if sub.NumEdges() <= opts.MinEdges {
		return nil, false
	}
	return sub, true
}

// Decompose splits G into pieces of at most opts.EdgeCutoff edges using modularity-based community detection.
//
// If G is within the cutoff, the result is just G.  Otherwise each community of G is taken as a node-induced
// subgraph; small communities are dropped (their edges are left for the caller to handle as remainder) and
// oversized ones are split again.  Pieces are returned in depth-first community order and are pairwise
// node-disjoint.  A piece that modularity cannot split further is returned as is, even if it exceeds the cutoff.
func Decompose(G *digraph.Graph, opts Opts) []*digraph.Graph {
	if G.NumEdges() <= opts.EdgeCutoff {
		return []*digraph.Graph{G}
	}

	var pieces []*digraph.Graph

	work := arraystack.New()
	work.Push(G)

	var children []*digraph.Graph
	for !work.Empty() {
		item, _ := work.Pop()
		cur := item.(*digraph.Graph)

		if cur.NumEdges() <= opts.EdgeCutoff {
			pieces = append(pieces, cur)
			continue
		}

		comms := Communities(cur, opts)
		if len(comms) <= 1 {
			klog.V(2).Infof("piece of %d nodes, %d edges does not split further", cur.NumNodes(), cur.NumEdges())
			pieces = append(pieces, cur)
			continue
		}

		children = children[:0]
		for _, comm := range comms {
			if sub, ok := opts.keep(cur, comm); ok {
				children = append(children, sub)
			}
		}
		klog.V(2).Infof("split %d nodes, %d edges into %d communities (%d kept)", cur.NumNodes(), cur.NumEdges(), len(comms), len(children))

		// Push in reverse so the first community is processed next
		for i := len(children) - 1; i >= 0; i-- {
			work.Push(children[i])
		}
	}

	klog.V(1).Infof("decomposed %d edges into %d pieces", G.NumEdges(), len(pieces))
	return pieces
}

// Communities runs modularity community detection on G and returns each community's nodes in ascending order,
// with communities ordered by their smallest node.  Self loops do not take part in community detection.
// Returns nil if G has no edges to detect communities from.
func Communities(G *digraph.Graph, opts Opts) [][]graphlet.NodeID {
	mirror := simple.NewDirectedGraph()
	for _, id := range G.Nodes() {
		mirror.AddNode(simple.Node(int64(id)))
	}

	numEdges := 0
	for _, e := range G.Edges() {
		if e.From == e.To {
			continue
		}
		mirror.SetEdge(mirror.NewEdge(simple.Node(int64(e.From)), simple.Node(int64(e.To))))
		numEdges++
	}
	if numEdges == 0 {
		return nil
	}

	reduced := community.Modularize(mirror, opts.Resolution, rand.NewPCG(opts.Seed, 0))

	var comms [][]graphlet.NodeID
	for _, members := range reduced.Communities() {
		if len(members) == 0 {
			continue
		}
		ids := make([]graphlet.NodeID, len(members))
		for i, n := range members {
			ids[i] = graphlet.NodeID(n.ID())
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		comms = append(comms, ids)
	}
	sort.Slice(comms, func(i, j int) bool { return comms[i][0] < comms[j][0] })
	return comms
}

// Coverage returns the edges of G that belong to none of the given pieces, in sorted order.
func Coverage(G *digraph.Graph, pieces []*digraph.Graph) []graphlet.Edge {
	var remainder []graphlet.Edge
	for _, e := range G.Edges() {
		covered := false
		for _, piece := range pieces {
			if piece.HasEdge(e.From, e.To) {
				covered = true
				break
			}
		}
		if !covered {
			remainder = append(remainder, e)
		}
	}
	return remainder
}
