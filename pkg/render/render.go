// Package render writes project graphs in formats external tools understand.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/observatorium/cfganalyzer/pkg/graph"
	"github.com/pkg/errors"
)

// Format of rendered output.
type Format string

const (
	FormatDOT   Format = "dot"
	FormatJSON  Format = "json"
	FormatEdges Format = "edges"
)

// Formats lists the supported formats.
var Formats = []Format{FormatDOT, FormatJSON, FormatEdges}

// Write renders g in the given format.
func Write(w io.Writer, f Format, g *graph.ProjectGraph) error {
	switch f {
	case FormatDOT:
		return DOT(w, g)
	case FormatJSON:
		return JSON(w, g)
	case FormatEdges:
		_, err := io.WriteString(w, EdgeList(g))
		return err
	}
	return errors.Errorf("unknown format %q, supported %v", f, Formats)
}

// DOT writes g as a Graphviz digraph, with one cluster per project group.
func DOT(w io.Writer, g *graph.ProjectGraph) error {
	var b strings.Builder
	b.WriteString("digraph projects {\n")
	b.WriteString("  rankdir=LR;\n")

	groups := map[string][]*graph.Node{}
	for _, n := range g.Nodes() {
		groups[n.Project.Group] = append(groups[n.Project.Group], n)
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		indent := "  "
		if name != "" {
			fmt.Fprintf(&b, "  subgraph cluster_%d {\n    label=%s;\n", i, strconv.Quote(name))
			indent = "    "
		}
		for _, n := range groups[name] {
			fmt.Fprintf(&b, "%s%s [label=%s];\n", indent, strconv.Quote(n.Key), strconv.Quote(label(n)))
		}
		if name != "" {
			b.WriteString("  }\n")
		}
	}

	for _, e := range g.Edges() {
		from, _ := g.Node(e.From)
		to, _ := g.Node(e.To)
		fmt.Fprintf(&b, "  %s -> %s;\n", strconv.Quote(from.Key), strconv.Quote(to.Key))
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func label(n *graph.Node) string {
	if n.Project.Name == "" {
		return n.Key
	}
	return n.Project.Name
}

type jsonNode struct {
	Key   string  `json:"key"`
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Group string  `json:"group"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type jsonEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type jsonGraph struct {
	Nodes []jsonNode `json:"nodes"`
	Edges []jsonEdge `json:"edges"`
}

// JSON writes g as {"nodes": [...], "edges": [...]}. Edges reference node keys.
func JSON(w io.Writer, g *graph.ProjectGraph) error {
	out := jsonGraph{Nodes: []jsonNode{}, Edges: []jsonEdge{}}
	for _, n := range g.Nodes() {
		out.Nodes = append(out.Nodes, jsonNode{
			Key: n.Key, ID: n.Project.ID, Name: n.Project.Name, Group: n.Project.Group,
			X: n.Position.X, Y: n.Position.Y,
		})
	}
	for _, e := range g.Edges() {
		from, _ := g.Node(e.From)
		to, _ := g.Node(e.To)
		out.Edges = append(out.Edges, jsonEdge{From: from.Key, To: to.Key})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(out), "encode graph")
}

// EdgeList returns one "producer -> consumer" line per edge, sorted, with
// project names. Positions are left out so two lists can be diffed.
func EdgeList(g *graph.ProjectGraph) string {
	lines := make([]string, 0, len(g.Edges()))
	for _, e := range g.Edges() {
		from, _ := g.Node(e.From)
		to, _ := g.Node(e.To)
		lines = append(lines, fmt.Sprintf("%s (%s) -> %s (%s)", from.Key, label(from), to.Key, label(to)))
	}
	sort.Strings(lines)
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
