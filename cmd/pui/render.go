package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/pui/internal/engineerr"
	"github.com/standardbeagle/pui/internal/graph"
	"github.com/standardbeagle/pui/internal/store"
)

// rootAbs resolves the --root flag to an absolute path, treating the
// empty string as "." rather than letting it reach engine.Open as "".
func rootAbs(root string) (string, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", engineerr.New(engineerr.KindInternal, "cli.root", err)
	}
	return abs, nil
}

func mustRootAbs(c *cli.Context) string {
	abs, err := rootAbs(c.String("root"))
	if err != nil {
		return c.String("root")
	}
	return abs
}

// hopEdges reconstructs parent->child edges from a BFS hop list: Traverse
// emits hops in non-decreasing depth order but records no explicit parent,
// so each hop is linked to the most recently seen hop one depth shallower
// (falling back to root at depth 1).
func hopEdges(root store.Symbol, hops []graph.Hop) [][2]store.Symbol {
	lastAtDepth := map[int]store.Symbol{0: root}
	edges := make([][2]store.Symbol, 0, len(hops))
	for _, h := range hops {
		parent, ok := lastAtDepth[h.Depth-1]
		if !ok {
			parent = root
		}
		edges = append(edges, [2]store.Symbol{parent, h.Symbol})
		lastAtDepth[h.Depth] = h.Symbol
	}
	return edges
}

// renderMermaid renders a graph traversal as a mermaid flowchart, the
// format §6 names alongside dot and json for the graph command.
func renderMermaid(root store.Symbol, hops []graph.Hop) string {
	var b strings.Builder
	b.WriteString("graph LR\n")
	fmt.Fprintf(&b, "  %s[%q]\n", nodeID(root.ID), root.Name)
	for _, e := range hopEdges(root, hops) {
		fmt.Fprintf(&b, "  %s[%q] --> %s[%q]\n", nodeID(e[0].ID), e[0].Name, nodeID(e[1].ID), e[1].Name)
	}
	return b.String()
}

// renderDot renders the same traversal as Graphviz dot source.
func renderDot(root store.Symbol, hops []graph.Hop) string {
	var b strings.Builder
	b.WriteString("digraph pui {\n")
	fmt.Fprintf(&b, "  %s [label=%q];\n", nodeID(root.ID), root.Name)
	for _, e := range hopEdges(root, hops) {
		fmt.Fprintf(&b, "  %s -> %s;\n", nodeID(e[0].ID), nodeID(e[1].ID))
	}
	b.WriteString("}\n")
	return b.String()
}

func nodeID(id int64) string {
	return fmt.Sprintf("n%d", id)
}
