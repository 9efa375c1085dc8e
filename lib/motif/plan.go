package motif

import (
	"sort"

	"github.com/fine-structures/graphlet/graphlet"
	"github.com/fine-structures/graphlet/lib/digraph"
)

type NodeID = graphlet.NodeID

// anchor says where a pattern node's candidates come from: the successors (or predecessors) of the
// graph node matched to an earlier pattern node.
type anchor struct {
	local int  // earlier pattern node, or -1 if candidates are all graph nodes
	succ  bool // true: candidates are successors of local's match; false: predecessors
}

// plan is a pattern compiled for matching.
type plan struct {
	pattern *graphlet.Pattern
	k       int
	edges   []graphlet.Edge // distinct pattern edges
	adj     [][]bool        // adj[i][j] is true if the pattern has edge i -> j
	outDeg  []int
	inDeg   []int
	order   []int    // pattern nodes in search order
	anchors []anchor // by search position
}

func newPlan(P *graphlet.Pattern) *plan {
	k := P.NumNodes()
	pl := &plan{
		pattern: P,
		k:       k,
		adj:     make([][]bool, k),
		outDeg:  make([]int, k),
		inDeg:   make([]int, k),
	}
	for i := range pl.adj {
		pl.adj[i] = make([]bool, k)
	}
	for _, e := range P.Edges {
		if pl.adj[e.From][e.To] {
			continue
		}
		pl.adj[e.From][e.To] = true
		pl.edges = append(pl.edges, e)
		pl.outDeg[e.From]++
		pl.inDeg[e.To]++
	}

	pl.order = pl.searchOrder()
	pl.anchors = make([]anchor, k)
	for pos, i := range pl.order {
		pl.anchors[pos] = anchor{local: -1}
		for _, j := range pl.order[:pos] {
			if pl.adj[j][i] {
				pl.anchors[pos] = anchor{local: j, succ: true}
				break
			}
			if pl.adj[i][j] {
				pl.anchors[pos] = anchor{local: j, succ: false}
				break
			}
		}
	}
	return pl
}

// searchOrder visits pattern nodes breadth-first over undirected adjacency, starting each component from
// its highest degree node and visiting higher degree neighbors first.
func (pl *plan) searchOrder() []int {
	degree := func(i int) int {
		return pl.outDeg[i] + pl.inDeg[i]
	}
	byDegree := make([]int, pl.k)
	for i := range byDegree {
		byDegree[i] = i
	}
	sort.SliceStable(byDegree, func(a, b int) bool {
		return degree(byDegree[a]) > degree(byDegree[b])
	})

	order := make([]int, 0, pl.k)
	visited := make([]bool, pl.k)
	for _, start := range byDegree {
		if visited[start] {
			continue
		}
		visited[start] = true
		queue := []int{start}
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			order = append(order, i)

			for _, j := range byDegree {
				if !visited[j] && (pl.adj[i][j] || pl.adj[j][i]) {
					visited[j] = true
					queue = append(queue, j)
				}
			}
		}
	}
	return order
}

// search is the state of one embedding search.
type search struct {
	pl      *plan
	g       *digraph.Graph
	mapping []NodeID
	used    map[NodeID]struct{}
}

// find looks for an embedding of the plan's pattern in g whose root (first search node) is nodes[from] or later.
// On success, it returns the mapping (indexed by pattern node) and the index of the root used.
func (pl *plan) find(g *digraph.Graph, nodes []NodeID, from int) ([]NodeID, int, bool) {
	if pl.k == 0 || pl.k > len(nodes) || len(pl.edges) > g.NumEdges() {
		return nil, len(nodes), false
	}

	s := search{
		pl:      pl,
		g:       g,
		mapping: make([]NodeID, pl.k),
		used:    make(map[NodeID]struct{}, pl.k),
	}

	root := pl.order[0]
	for ri := from; ri < len(nodes); ri++ {
		c := nodes[ri]
		if !s.feasible(0, c) {
			continue
		}
		s.assign(root, c)
		if s.extend(1) {
			return s.mapping, ri, true
		}
		s.unassign(c)
	}
	return nil, len(nodes), false
}

func (s *search) assign(i int, c NodeID) {
	s.mapping[i] = c
	s.used[c] = struct{}{}
}

func (s *search) unassign(c NodeID) {
	delete(s.used, c)
}

func (s *search) extend(pos int) bool {
	if pos == len(s.pl.order) {
		return true
	}

	i := s.pl.order[pos]
	var cands []NodeID
	if a := s.pl.anchors[pos]; a.local < 0 {
		cands = s.g.Nodes()
	} else if a.succ {
		cands = s.g.Successors(s.mapping[a.local])
	} else {
		cands = s.g.Predecessors(s.mapping[a.local])
	}

	for _, c := range cands {
		if !s.feasible(pos, c) {
			continue
		}
		s.assign(i, c)
		if s.extend(pos + 1) {
			return true
		}
		s.unassign(c)
	}
	return false
}

// feasible checks whether graph node c can take the pattern node at the given search position.
func (s *search) feasible(pos int, c NodeID) bool {
	pl := s.pl
	i := pl.order[pos]

	if _, taken := s.used[c]; taken {
		return false
	}
	if s.g.OutDegree(c) < pl.outDeg[i] || s.g.InDegree(c) < pl.inDeg[i] {
		return false
	}
	if pl.adj[i][i] && !s.g.HasEdge(c, c) {
		return false
	}
	for _, j := range pl.order[:pos] {
		if pl.adj[i][j] && !s.g.HasEdge(c, s.mapping[j]) {
			return false
		}
		if pl.adj[j][i] && !s.g.HasEdge(s.mapping[j], c) {
			return false
		}
	}
	return true
}
