package engine

import (
	"context"

	"github.com/standardbeagle/pui/internal/engineerr"
	"github.com/standardbeagle/pui/internal/graph"
	"github.com/standardbeagle/pui/internal/store"
)

// graphHop re-exports graph.Hop so callers only need to import engine for
// the CLI/MCP-facing graph command.
type graphHop = graph.Hop

// parseDirection maps §6's `--direction in|out|both` vocabulary onto
// graph.Direction; the empty string defaults to "out" (callees), matching
// a graph command with no explicit direction meaning "what does this call".
func parseDirection(s string) (graph.Direction, error) {
	switch s {
	case "", "out":
		return graph.DirectionOut, nil
	case "in":
		return graph.DirectionIn, nil
	case "both":
		return graph.DirectionBoth, nil
	default:
		return "", engineerr.New(engineerr.KindInternal, "engine.graph.direction", errUnknownDirection(s))
	}
}

func (e *Engine) traverse(ctx context.Context, rootID int64, q GraphQuery) ([]graphHop, error) {
	dir, err := parseDirection(q.Direction)
	if err != nil {
		return nil, err
	}
	kind := q.Kind
	if kind == "" {
		kind = store.EdgeCall
	}
	return graph.Traverse(ctx, e.Store, rootID, kind, dir, q.MaxDepth, q.MinConfidence)
}

type errUnknownDirection string

func (e errUnknownDirection) Error() string { return "unknown graph direction: " + string(e) }
