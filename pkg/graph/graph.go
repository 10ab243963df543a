// Package graph holds the project dependency graph handed to renderers.
//
// Nodes and edges are addressed by handles that stay valid when other nodes
// or edges are removed, so a renderer can keep per-node state (selection,
// layout) across edits. A Graph is not safe for concurrent use.
package graph

import (
	"fmt"
	"sort"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// NodeID is a stable node handle. It is never reused within a Graph.
type NodeID int

// EdgeID is a stable edge handle. It is never reused within a Graph.
type EdgeID int

// ProjectNode is the payload of a node.
type ProjectNode struct {
	ID    string
	Name  string
	Group string
}

// Point is a position in the layout plane.
type Point struct {
	X, Y float64
}

// Node of the graph. Position is only a layout seed for renderers and is not
// part of the node's identity.
type Node struct {
	ID       NodeID
	Key      string
	Project  ProjectNode
	Position Point
}

// Edge is directed from From to To.
type Edge struct {
	ID       EdgeID
	From, To NodeID
}

// Graph is a directed graph with stable handles. Adjacency is kept in a gonum
// simple.DirectedGraph keyed by node handle; handles and payloads are kept here.
type Graph struct {
	g *simple.DirectedGraph

	nodes   map[NodeID]*Node
	edges   map[EdgeID]*Edge
	edgeIDs map[[2]NodeID]EdgeID

	// gonum may hand out released IDs again; these counters never do.
	nextNode NodeID
	nextEdge EdgeID
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		g:       simple.NewDirectedGraph(),
		nodes:   map[NodeID]*Node{},
		edges:   map[EdgeID]*Edge{},
		edgeIDs: map[[2]NodeID]EdgeID{},
	}
}

// AddNode adds a node and returns its handle.
func (g *Graph) AddNode(key string, p ProjectNode, pos Point) NodeID {
	id := g.nextNode
	g.nextNode++

	g.g.AddNode(simple.Node(id))
	g.nodes[id] = &Node{ID: id, Key: key, Project: p, Position: pos}
	return id
}

// AddEdge adds a directed edge. If the same edge already exists, its handle is
// returned and nothing is added. Self loops are rejected.
func (g *Graph) AddEdge(from, to NodeID) (EdgeID, error) {
	if _, ok := g.nodes[from]; !ok {
		return 0, fmt.Errorf("source node not found: %d", from)
	}
	if _, ok := g.nodes[to]; !ok {
		return 0, fmt.Errorf("destination node not found: %d", to)
	}
	if from == to {
		return 0, fmt.Errorf("self loop on node %d", from)
	}
	if id, ok := g.FindEdge(from, to); ok {
		return id, nil
	}

	id := g.nextEdge
	g.nextEdge++

	g.g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
	g.edges[id] = &Edge{ID: id, From: from, To: to}
	g.edgeIDs[[2]NodeID{from, to}] = id
	return id, nil
}

// FindEdge returns the edge from -> to, if any.
func (g *Graph) FindEdge(from, to NodeID) (EdgeID, bool) {
	id, ok := g.edgeIDs[[2]NodeID{from, to}]
	return id, ok
}

// RemoveEdge removes an edge. It reports whether the edge existed.
func (g *Graph) RemoveEdge(id EdgeID) bool {
	e, ok := g.edges[id]
	if !ok {
		return false
	}
	g.g.RemoveEdge(int64(e.From), int64(e.To))
	delete(g.edgeIDs, [2]NodeID{e.From, e.To})
	delete(g.edges, id)
	return true
}

// RemoveNode removes a node and its incident edges. It reports whether the
// node existed.
func (g *Graph) RemoveNode(id NodeID) bool {
	if _, ok := g.nodes[id]; !ok {
		return false
	}
	for _, to := range g.Successors(id) {
		g.RemoveEdge(g.edgeIDs[[2]NodeID{id, to}])
	}
	for _, from := range g.Predecessors(id) {
		g.RemoveEdge(g.edgeIDs[[2]NodeID{from, id}])
	}
	g.g.RemoveNode(int64(id))
	delete(g.nodes, id)
	return true
}

// Node returns the node with the given handle.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Edge returns the edge with the given handle.
func (g *Graph) Edge(id EdgeID) (*Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// Nodes returns all nodes ordered by handle.
func (g *Graph) Nodes() []*Node {
	ret := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		ret = append(ret, n)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })
	return ret
}

// Edges returns all edges ordered by handle.
func (g *Graph) Edges() []*Edge {
	ret := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		ret = append(ret, e)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })
	return ret
}

// Successors returns the nodes the given node has an edge to, ordered by handle.
func (g *Graph) Successors(id NodeID) []NodeID {
	if _, ok := g.nodes[id]; !ok {
		return []NodeID{}
	}
	return sortedIDs(g.g.From(int64(id)))
}

// Predecessors returns the nodes with an edge to the given node, ordered by handle.
func (g *Graph) Predecessors(id NodeID) []NodeID {
	if _, ok := g.nodes[id]; !ok {
		return []NodeID{}
	}
	return sortedIDs(g.g.To(int64(id)))
}

func sortedIDs(it gonum.Nodes) []NodeID {
	ret := []NodeID{}
	for it.Next() {
		ret = append(ret, NodeID(it.Node().ID()))
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// CycleError is returned by DetectCycles.
type CycleError struct {
	// Path lists the node keys of the cycle; the first key is repeated at the end.
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %v", e.Path)
}

// DetectCycles returns a *CycleError or nil if the graph is acyclic. Of all
// elementary cycles, the one reported starts at the lowest handle it can
// start at, and is the shortest, then lexicographically smallest, among those.
func (g *Graph) DetectCycles() error {
	if _, err := topo.Sort(g.g); err == nil {
		return nil
	}

	var best []NodeID
	for _, c := range topo.DirectedCyclesIn(g.g) {
		cycle := canonicalCycle(c)
		if best == nil || lessCycle(cycle, best) {
			best = cycle
		}
	}
	if best == nil {
		return nil
	}

	path := make([]string, 0, len(best)+1)
	for _, id := range best {
		path = append(path, g.nodes[id].Key)
	}
	return &CycleError{Path: append(path, g.nodes[best[0]].Key)}
}

// canonicalCycle drops the closing node, if present, and rotates the cycle to
// start at its lowest handle.
func canonicalCycle(c []gonum.Node) []NodeID {
	if len(c) > 1 && c[0].ID() == c[len(c)-1].ID() {
		c = c[:len(c)-1]
	}
	start := 0
	for i := range c {
		if c[i].ID() < c[start].ID() {
			start = i
		}
	}
	ret := make([]NodeID, 0, len(c))
	for i := range c {
		ret = append(ret, NodeID(c[(start+i)%len(c)].ID()))
	}
	return ret
}

func lessCycle(a, b []NodeID) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
