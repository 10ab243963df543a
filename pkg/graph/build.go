package graph

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/observatorium/cfganalyzer/pkg/resolve"
)

// DefaultSpawnSize is the side of the square initial node positions are drawn from.
const DefaultSpawnSize = 100.0

// InconsistentSnapshotError is returned when an edge references a project
// that is not part of the node set. It means the edges and the nodes were
// computed from different snapshots, which is a programming error.
type InconsistentSnapshotError struct {
	Key  string
	Edge resolve.Edge
}

func (e *InconsistentSnapshotError) Error() string {
	return fmt.Sprintf("inconsistent snapshot: edge %v references unknown project %q", e.Edge, e.Key)
}

// ProjectGraph is a Graph with a lookup from project key to node handle.
type ProjectGraph struct {
	*Graph

	index map[string]NodeID
}

// NodeFor returns the handle of the node for the given project key.
func (pg *ProjectGraph) NodeFor(key string) (NodeID, bool) {
	id, ok := pg.index[key]
	if !ok {
		return 0, false
	}
	if _, ok := pg.Node(id); !ok {
		return 0, false
	}
	return id, true
}

// Keys returns the project keys known to the graph, sorted.
func (pg *ProjectGraph) Keys() []string {
	keys := make([]string, 0, len(pg.index))
	for k := range pg.index {
		if _, ok := pg.NodeFor(k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// RemoveProject removes the node of the given project and its edges.
func (pg *ProjectGraph) RemoveProject(key string) bool {
	id, ok := pg.NodeFor(key)
	if !ok {
		return false
	}
	delete(pg.index, key)
	return pg.RemoveNode(id)
}

// Builder builds project graphs. Initial node positions are drawn from its
// random source, so a seeded source gives reproducible layouts.
type Builder struct {
	rnd       *rand.Rand
	spawnSize float64
}

// NewBuilder returns a Builder drawing positions from src within
// [0, spawnSize) x [0, spawnSize). A non positive spawnSize selects DefaultSpawnSize.
func NewBuilder(src rand.Source, spawnSize float64) *Builder {
	if spawnSize <= 0 {
		spawnSize = DefaultSpawnSize
	}
	return &Builder{rnd: rand.New(src), spawnSize: spawnSize}
}

// Build creates one node per project, in key order, and one edge per
// distinct dependency, directed from the producer (DependsOn) to the consumer
// (DependedBy). An edge referencing an unknown project fails with
// *InconsistentSnapshotError.
func (b *Builder) Build(projects map[string]ProjectNode, edges []resolve.Edge) (*ProjectGraph, error) {
	keys := make([]string, 0, len(projects))
	for k := range projects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pg := &ProjectGraph{Graph: New(), index: make(map[string]NodeID, len(keys))}
	for _, k := range keys {
		pg.index[k] = pg.AddNode(k, projects[k], b.randomLocation())
	}

	for _, e := range edges {
		from, ok := pg.index[e.DependsOn]
		if !ok {
			return nil, &InconsistentSnapshotError{Key: e.DependsOn, Edge: e}
		}
		to, ok := pg.index[e.DependedBy]
		if !ok {
			return nil, &InconsistentSnapshotError{Key: e.DependedBy, Edge: e}
		}
		if _, err := pg.AddEdge(from, to); err != nil {
			return nil, err
		}
	}
	return pg, nil
}

func (b *Builder) randomLocation() Point {
	return Point{X: b.rnd.Float64() * b.spawnSize, Y: b.rnd.Float64() * b.spawnSize}
}
