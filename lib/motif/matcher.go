package motif

import (
	"github.com/fine-structures/graphlet/graphlet"
	"github.com/fine-structures/graphlet/lib/digraph"
	"github.com/fine-structures/graphlet/lib/library"
	"github.com/plan-systems/klog"
)

// OnMatch is called for each instance found, with the pattern it instantiates and the number of edges it covers.
type OnMatch func(P *graphlet.Pattern, covered int)

// Matcher greedily covers a graph's edges with pattern instances, trying patterns in library order.
//
// A Matcher holds no per-graph state, so one Matcher may serve many goroutines at once.
type Matcher struct {
	lib   *library.Library
	plans []*plan

	// If set, called for each instance found (possibly from several goroutines at once).
	OnMatch OnMatch
}

// NewMatcher compiles every pattern in lib for matching.
//
// Patterns that library.Validate reports are left out: malformed ones, and ones whose residual expanded under
// their generators does not reproduce exactly their edges.
func NewMatcher(lib *library.Library) *Matcher {
	m := &Matcher{
		lib: lib,
	}

	bad := make(map[int]bool)
	for _, issue := range library.Validate(lib) {
		klog.Warningf("skipping %v", issue)
		bad[issue.PatternID] = true
	}

	patterns := lib.Patterns()
	for i := range patterns {
		if !bad[i] {
			m.plans = append(m.plans, newPlan(&patterns[i]))
		}
	}
	return m
}

// Library returns the pattern library this Matcher was built from.
func (m *Matcher) Library() *library.Library {
	return m.lib
}

// CompressPiece replaces as many of the piece's edges as possible with pattern instances.
//
// Each pattern is matched repeatedly until no embedding remains in the edges not yet covered; then the next pattern
// is tried.  Instances are returned in pattern order and then match order.  Leftovers are the piece's uncovered edges
// in sorted order.  The given piece is not modified.
func (m *Matcher) CompressPiece(piece *digraph.Graph) (instances []graphlet.Instance, leftovers []graphlet.Edge) {
	work := piece.Copy()
	nodes := work.Nodes()

	for _, pl := range m.plans {
		if work.NumEdges() == 0 {
			break
		}

		count := 0
		from := 0
		for {
			mapping, root, found := pl.find(work, nodes, from)
			if !found {
				break
			}

			// Roots before this one failed and edge removal can't make them succeed
			from = root

			instances = append(instances, pl.pattern.MapInstance(mapping))
			for _, e := range pl.edges {
				work.RemoveEdge(mapping[e.From], mapping[e.To])
			}
			if m.OnMatch != nil {
				m.OnMatch(pl.pattern, len(pl.edges))
			}
			count++
		}

		if count > 0 {
			klog.V(2).Infof("pattern %d: %d instances, %d edges remain", pl.pattern.ID, count, work.NumEdges())
		}
	}

	leftovers = work.Edges()
	return
}

// Find returns an embedding of P in g, where mapping[i] is the graph node matched to pattern node i.
// An embedding preserves edge direction and is not necessarily induced: g may have edges among the matched
// nodes that P does not.
//
// Patterns with more node indices than their edges can touch never match.
func Find(g *digraph.Graph, P *graphlet.Pattern) (mapping []NodeID, found bool) {
	k := P.NumNodes()
	if k == 0 || k > 2*len(P.Edges) || k > g.NumNodes() {
		return nil, false
	}
	mapping, _, found = newPlan(P).find(g, g.Nodes(), 0)
	return
}
