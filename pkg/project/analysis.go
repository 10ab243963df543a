package project

import (
	"github.com/observatorium/cfganalyzer/pkg/graph"
	"github.com/observatorium/cfganalyzer/pkg/resolve"
	"github.com/pkg/errors"
)

// Analysis is a snapshot with its resolved dependencies and graph.
type Analysis struct {
	*Snapshot

	Result resolve.Result
	Graph  *graph.ProjectGraph
}

// Analyze resolves dependencies between the snapshot's projects and builds
// their graph. Every call starts from scratch.
func (s *Snapshot) Analyze(b *graph.Builder) (*Analysis, error) {
	res := resolve.Resolve(s.Configs)
	g, err := b.Build(s.Nodes, res.Edges)
	if err != nil {
		return nil, errors.Wrapf(err, "build graph at %v", s.Ref)
	}
	return &Analysis{Snapshot: s, Result: res, Graph: g}, nil
}
