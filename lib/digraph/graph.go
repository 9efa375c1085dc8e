package digraph

import (
	"sort"

	"github.com/fine-structures/graphlet/graphlet"
)

type NodeID = graphlet.NodeID
type Edge = graphlet.Edge

type nodeSet map[NodeID]struct{}

type vertex struct {
	out nodeSet
	in  nodeSet
}

// Graph is a mutable directed graph with no duplicate edges.  Self loops are permitted.
//
// A Graph is not safe for concurrent mutation; pieces handed to separate goroutines must be separate Graphs.
type Graph struct {
	vtx       map[NodeID]*vertex
	edgeCount int
}

func NewGraph() *Graph {
	return &Graph{
		vtx: make(map[NodeID]*vertex),
	}
}

// NewGraphFromEdges returns a graph holding the given edges (duplicates collapse).
func NewGraphFromEdges(edges []Edge) *Graph {
	G := NewGraph()
	for _, e := range edges {
		G.AddEdge(e.From, e.To)
	}
	return G
}

func (G *Graph) vertex(id NodeID) *vertex {
	v := G.vtx[id]
	if v == nil {
		v = &vertex{}
		G.vtx[id] = v
	}
	return v
}

// AddNode adds the given node if not already present.
func (G *Graph) AddNode(id NodeID) {
	G.vertex(id)
}

// AddNodeRange adds nodes start, start+1, .. start+count-1.
func (G *Graph) AddNodeRange(start NodeID, count int) {
	for i := 0; i < count; i++ {
		G.vertex(start + NodeID(i))
	}
}

// AddEdge adds u -> v (and both nodes).  Returns false if the edge was already present.
func (G *Graph) AddEdge(u, v NodeID) bool {
	vu := G.vertex(u)
	if _, exists := vu.out[v]; exists {
		return false
	}
	vv := G.vertex(v)
	if vu.out == nil {
		vu.out = make(nodeSet)
	}
	if vv.in == nil {
		vv.in = make(nodeSet)
	}
	vu.out[v] = struct{}{}
	vv.in[u] = struct{}{}
	G.edgeCount++
	return true
}

// RemoveEdge removes u -> v, leaving both nodes in place.  Returns false if the edge was not present.
func (G *Graph) RemoveEdge(u, v NodeID) bool {
	vu := G.vtx[u]
	if vu == nil {
		return false
	}
	if _, exists := vu.out[v]; !exists {
		return false
	}
	delete(vu.out, v)
	delete(G.vtx[v].in, u)
	G.edgeCount--
	return true
}

func (G *Graph) HasNode(id NodeID) bool {
	_, exists := G.vtx[id]
	return exists
}

func (G *Graph) HasEdge(u, v NodeID) bool {
	vu := G.vtx[u]
	if vu == nil {
		return false
	}
	_, exists := vu.out[v]
	return exists
}

func (G *Graph) NumNodes() int {
	return len(G.vtx)
}

func (G *Graph) NumEdges() int {
	return G.edgeCount
}

func (G *Graph) OutDegree(id NodeID) int {
	if v := G.vtx[id]; v != nil {
		return len(v.out)
	}
	return 0
}

func (G *Graph) InDegree(id NodeID) int {
	if v := G.vtx[id]; v != nil {
		return len(v.in)
	}
	return 0
}

// Nodes returns all node IDs in ascending order.
func (G *Graph) Nodes() []NodeID {
	nodes := make([]NodeID, 0, len(G.vtx))
	for id := range G.vtx {
		nodes = append(nodes, id)
	}
	sortIDs(nodes)
	return nodes
}

// Edges returns all edges sorted by (From, To).
func (G *Graph) Edges() []Edge {
	edges := make([]Edge, 0, G.edgeCount)
	for u, vu := range G.vtx {
		for v := range vu.out {
			edges = append(edges, Edge{u, v})
		}
	}
	graphlet.SortEdges(edges)
	return edges
}

// Successors returns the targets of u's out-edges in ascending order.
func (G *Graph) Successors(u NodeID) []NodeID {
	if v := G.vtx[u]; v != nil {
		return sortedSet(v.out)
	}
	return nil
}

// Predecessors returns the sources of u's in-edges in ascending order.
func (G *Graph) Predecessors(u NodeID) []NodeID {
	if v := G.vtx[u]; v != nil {
		return sortedSet(v.in)
	}
	return nil
}

// Copy returns a deep copy of this graph.
func (G *Graph) Copy() *Graph {
	dup := &Graph{
		vtx:       make(map[NodeID]*vertex, len(G.vtx)),
		edgeCount: G.edgeCount,
	}
	for id, v := range G.vtx {
		dup.vtx[id] = &vertex{
			out: copySet(v.out),
			in:  copySet(v.in),
		}
	}
	return dup
}

// Subgraph returns a new graph induced by the given nodes: every listed node that exists in G, and
// every edge of G whose endpoints are both listed.
func (G *Graph) Subgraph(nodes []NodeID) *Graph {
	keep := make(nodeSet, len(nodes))
	for _, id := range nodes {
		if G.HasNode(id) {
			keep[id] = struct{}{}
		}
	}

	sub := &Graph{
		vtx: make(map[NodeID]*vertex, len(keep)),
	}
	for id := range keep {
		sub.vertex(id)
	}
	for u := range keep {
		for v := range G.vtx[u].out {
			if _, ok := keep[v]; ok {
				sub.AddEdge(u, v)
			}
		}
	}
	return sub
}

// RemoveEdges removes every edge of the given graph from G, returning the number removed.
func (G *Graph) RemoveEdges(edges []Edge) int {
	removed := 0
	for _, e := range edges {
		if G.RemoveEdge(e.From, e.To) {
			removed++
		}
	}
	return removed
}

// EqualEdges returns true if G and other have exactly the same edge set.
func (G *Graph) EqualEdges(other *Graph) bool {
	if G.edgeCount != other.edgeCount {
		return false
	}
	for u, vu := range G.vtx {
		for v := range vu.out {
			if !other.HasEdge(u, v) {
				return false
			}
		}
	}
	return true
}

func copySet(src nodeSet) nodeSet {
	if len(src) == 0 {
		return nil
	}
	dst := make(nodeSet, len(src))
	for id := range src {
		dst[id] = struct{}{}
	}
	return dst
}

func sortedSet(set nodeSet) []NodeID {
	ids := make([]NodeID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

func sortIDs(ids []NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
