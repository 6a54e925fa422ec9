// Package graph implements the Graph Engine (C9): multi-hop,
// cycle-safe traversal of CALL and MODULE_DEPENDS_ON edges with per-path
// confidence aggregation and deterministic ordering.
//
// Grounded on standardbeagle-lci's internal/core/universal_graph.go
// (BuildRelationshipTree's visited-set recursion and depth-bounded walk),
// adapted from an in-memory adjacency index onto repeated one-hop
// store.IncomingEdges/OutgoingEdges queries, since this module keeps
// symbol relationships in SQLite rather than a resident graph structure.
package graph

import (
	"context"
	"sort"

	"github.com/standardbeagle/pui/internal/store"
)

// Direction selects which edge endpoint a traversal follows.
type Direction string

const (
	DirectionIn   Direction = "in"   // callers / upstream
	DirectionOut  Direction = "out"  // callees / downstream
	DirectionBoth Direction = "both"
)

// Hop is one symbol reached during a traversal, annotated with its
// distance from the root and the aggregated confidence of the path that
// reached it first (BFS order, so the first path found is also the
// shortest).
type Hop struct {
	Symbol     store.Symbol
	Path       string // owning file's repo-relative path, for tie-break and display
	Depth      int
	Confidence float64 // min of edge confidences along the path from root (§4.9)
}

// queueItem is one pending BFS frontier entry.
type queueItem struct {
	symbolID   int64
	depth      int
	confidence float64
}

// Traverse performs a breadth-first walk of kind-typed edges from rootID
// out to maxDepth hops, never revisiting a symbol (cycle safety, invariant
// 5: output size never exceeds the number of distinct symbols reachable).
// minConfidence filters individual edges before they are followed, not the
// aggregated path confidence.
func Traverse(ctx context.Context, s *store.Store, rootID int64, kind store.EdgeKind, dir Direction, maxDepth int, minConfidence float64) ([]Hop, error) {
	if maxDepth < 1 {
		return nil, nil
	}

	visited := map[int64]bool{rootID: true}
	queue := []queueItem{{symbolID: rootID, depth: 0, confidence: 1.0}}
	var out []Hop

	pathCache := make(map[int64]string)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}

		neighbors, err := neighborsOf(ctx, s, cur.symbolID, kind, dir, minConfidence)
		if err != nil {
			return nil, err
		}
		sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].Other.ID < neighbors[j].Other.ID })

		for _, n := range neighbors {
			if visited[n.Other.ID] {
				continue
			}
			visited[n.Other.ID] = true

			aggConf := n.Edge.Confidence
			if cur.confidence < aggConf {
				aggConf = cur.confidence
			}

			path, ok := pathCache[n.Other.FileID]
			if !ok {
				if f, err := s.FileByID(ctx, n.Other.FileID); err == nil && f != nil {
					path = f.Path
				}
				pathCache[n.Other.FileID] = path
			}

			hop := Hop{Symbol: n.Other, Path: path, Depth: cur.depth + 1, Confidence: aggConf}
			out = append(out, hop)
			queue = append(queue, queueItem{symbolID: n.Other.ID, depth: cur.depth + 1, confidence: aggConf})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Symbol.ID < b.Symbol.ID
	})
	return out, nil
}

func neighborsOf(ctx context.Context, s *store.Store, symbolID int64, kind store.EdgeKind, dir Direction, minConfidence float64) ([]store.EdgeWithSymbol, error) {
	switch dir {
	case DirectionIn:
		return s.IncomingEdges(ctx, symbolID, kind, minConfidence)
	case DirectionOut:
		return s.OutgoingEdges(ctx, symbolID, kind, minConfidence)
	default:
		in, err := s.IncomingEdges(ctx, symbolID, kind, minConfidence)
		if err != nil {
			return nil, err
		}
		out, err := s.OutgoingEdges(ctx, symbolID, kind, minConfidence)
		if err != nil {
			return nil, err
		}
		return append(in, out...), nil
	}
}

// Callers returns the symbols with a CALL path into rootID up to maxDepth
// hops, confidence-filtered and aggregated per hop.
func Callers(ctx context.Context, s *store.Store, rootID int64, maxDepth int, minConfidence float64) ([]Hop, error) {
	return Traverse(ctx, s, rootID, store.EdgeCall, DirectionIn, maxDepth, minConfidence)
}

// Callees returns the symbols rootID has a CALL path to, up to maxDepth hops.
func Callees(ctx context.Context, s *store.Store, rootID int64, maxDepth int, minConfidence float64) ([]Hop, error) {
	return Traverse(ctx, s, rootID, store.EdgeCall, DirectionOut, maxDepth, minConfidence)
}

// ModuleDependencies walks MODULE_DEPENDS_ON edges from a module
// pseudo-symbol (see resolve.ResolveModuleDependencies), up to maxDepth
// hops in dir.
func ModuleDependencies(ctx context.Context, s *store.Store, moduleSymbolID int64, dir Direction, maxDepth int) ([]Hop, error) {
	return Traverse(ctx, s, moduleSymbolID, store.EdgeModuleDependsOn, dir, maxDepth, 0)
}
