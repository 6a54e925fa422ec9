// Package impact implements the Impact Engine (C10): given a changed
// set of symbols (discovered from paths, symbol IDs, or a git diff range),
// it produces upstream callers, transitive downstream, affected tests, and
// a ranked review order with a one-line rationale per item.
//
// Grounded on standardbeagle-lci's internal/analysis/relationship_analyzer.go
// (fan-in/fan-out scoring shape) and internal/analysis/dependency_tracker.go
// (module-level centrality aggregation); git-diff-to-symbol resolution
// shells out via internal/gitdiff the same way internal/server/client.go
// shells external processes in the teacher.
package impact

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/pui/internal/gitdiff"
	"github.com/standardbeagle/pui/internal/graph"
	"github.com/standardbeagle/pui/internal/store"
)

// testPathPatterns are the language-aware test-file globs named in §4.10.
var testPathPatterns = []string{
	"*_test.go",
	"test_*.py",
	"*_test.py",
	"*.spec.ts", "*.spec.js", "*.spec.tsx", "*.spec.jsx",
	"*.test.ts", "*.test.js", "*.test.tsx", "*.test.jsx",
}

// ChangedItem is one symbol identified as part of the changed set.
type ChangedItem struct {
	Symbol store.Symbol
	Path   string
}

// AffectedItem is one symbol the Impact Engine has judged relevant to a
// change, with the signals behind its ranking and a human-readable reason
// (the `--explain` output).
type AffectedItem struct {
	Symbol        store.Symbol
	Path          string
	HopCount      int
	FanIn         int
	TestProximity bool
	Centrality    int
	IsPublic      bool
	Score         float64
	Rationale     string
}

// Result is the full Impact Engine output for one change set.
type Result struct {
	Changed       []ChangedItem
	Upstream      []AffectedItem // direct callers of any changed symbol
	Downstream    []AffectedItem // transitive callees, hop count attached
	AffectedTests []AffectedItem
	Ranked        []AffectedItem // full review order, §4.10's ranking key
}

// SymbolsFromPaths treats every symbol defined in any of paths as changed
// (a whole-file change, used when the caller passes --files rather than a
// git diff range).
func SymbolsFromPaths(ctx context.Context, s *store.Store, paths []string) ([]store.Symbol, error) {
	var out []store.Symbol
	for _, p := range paths {
		f, err := s.GetFileByPath(ctx, p)
		if err != nil {
			return nil, err
		}
		if f == nil {
			continue
		}
		syms, err := s.FindSymbolsByFile(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, syms...)
	}
	return out, nil
}

// SymbolsFromHunks maps git diff hunks onto the symbols whose spans
// intersect each hunk's changed line range (§4.10's span-intersection
// rule), deduplicating by symbol id.
func SymbolsFromHunks(ctx context.Context, s *store.Store, hunks []gitdiff.Hunk) ([]store.Symbol, error) {
	seen := make(map[int64]bool)
	var out []store.Symbol
	for _, h := range hunks {
		f, err := s.GetFileByPath(ctx, h.Path)
		if err != nil {
			return nil, err
		}
		if f == nil {
			continue
		}
		syms, err := s.SymbolsInSpan(ctx, f.ID, h.StartLine, h.EndLine)
		if err != nil {
			return nil, err
		}
		for _, sym := range syms {
			if seen[sym.ID] {
				continue
			}
			seen[sym.ID] = true
			out = append(out, sym)
		}
	}
	return out, nil
}

// Analyze builds the full blast-radius ranking for a changed set of
// symbols. maxDownstreamDepth bounds the transitive-callee walk (C9).
func Analyze(ctx context.Context, s *store.Store, changed []store.Symbol, maxDownstreamDepth int) (Result, error) {
	var res Result
	if maxDownstreamDepth < 1 {
		maxDownstreamDepth = 3
	}

	changedIDs := make(map[int64]bool, len(changed))
	for _, sym := range changed {
		changedIDs[sym.ID] = true
		res.Changed = append(res.Changed, ChangedItem{Symbol: sym, Path: pathOf(ctx, s, sym.FileID)})
	}

	affected := make(map[int64]*AffectedItem)
	addOrMerge := func(sym store.Symbol, hop int, path string) *AffectedItem {
		if item, ok := affected[sym.ID]; ok {
			if hop < item.HopCount {
				item.HopCount = hop
			}
			return item
		}
		item := &AffectedItem{Symbol: sym, Path: path, HopCount: hop}
		affected[sym.ID] = item
		return item
	}

	downstreamIDs := make(map[int64]bool)
	for _, sym := range changed {
		callers, err := graph.Callers(ctx, s, sym.ID, 1, 0)
		if err != nil {
			return res, err
		}
		for _, c := range callers {
			if changedIDs[c.Symbol.ID] {
				continue
			}
			item := addOrMerge(c.Symbol, 1, c.Path)
			item.FanIn++
		}

		downstream, err := graph.Callees(ctx, s, sym.ID, maxDownstreamDepth, 0)
		if err != nil {
			return res, err
		}
		for _, d := range downstream {
			if changedIDs[d.Symbol.ID] {
				continue
			}
			downstreamIDs[d.Symbol.ID] = true
			addOrMerge(d.Symbol, d.Depth, d.Path)
		}
	}

	centralityCache := make(map[string]int)
	for _, item := range affected {
		item.TestProximity = isTestPath(item.Path)
		item.IsPublic = isPublicSymbol(item.Symbol)
		if strings.HasSuffix(item.Path, ".go") && item.Symbol.Name != "" {
			first := item.Symbol.Name[0]
			item.IsPublic = first >= 'A' && first <= 'Z'
		}
		item.Centrality = moduleCentrality(ctx, s, item.Path, centralityCache)
		item.Score = score(item)
		item.Rationale = rationale(*item)
	}

	for _, item := range affected {
		cp := *item
		if cp.HopCount <= 1 && cp.FanIn > 0 {
			res.Upstream = append(res.Upstream, cp)
		}
		if downstreamIDs[cp.Symbol.ID] {
			res.Downstream = append(res.Downstream, cp)
		}
		if cp.TestProximity {
			res.AffectedTests = append(res.AffectedTests, cp)
		}
		res.Ranked = append(res.Ranked, cp)
	}

	sortByRank(res.Upstream)
	sortByRank(res.Downstream)
	sortByRank(res.AffectedTests)
	sortByRank(res.Ranked)
	return res, nil
}

func sortByRank(items []AffectedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		if items[i].Path != items[j].Path {
			return items[i].Path < items[j].Path
		}
		return items[i].Symbol.ID < items[j].Symbol.ID
	})
}

// score combines §4.10's ranking key into one composite, ordered so each
// earlier-listed signal dominates ties in the signal after it.
func score(item *AffectedItem) float64 {
	s := float64(item.FanIn) * 1000
	if item.TestProximity {
		s += 100
	}
	s += float64(item.Centrality)
	if item.IsPublic {
		s *= 1.5 // public changes elevate severity one band (§4.10)
	}
	return s
}

func rationale(item AffectedItem) string {
	var parts []string
	if item.FanIn > 0 {
		parts = append(parts, fmt.Sprintf("%d caller(s)", item.FanIn))
	}
	if item.HopCount > 0 {
		parts = append(parts, fmt.Sprintf("%d hop(s) downstream", item.HopCount))
	}
	if item.TestProximity {
		parts = append(parts, "has test coverage nearby")
	}
	if item.Centrality > 0 {
		parts = append(parts, fmt.Sprintf("module centrality %d", item.Centrality))
	}
	if item.IsPublic {
		parts = append(parts, "public API surface")
	}
	if len(parts) == 0 {
		return "reachable from changed symbols"
	}
	return strings.Join(parts, "; ")
}

func pathOf(ctx context.Context, s *store.Store, fileID int64) string {
	f, err := s.FileByID(ctx, fileID)
	if err != nil || f == nil {
		return ""
	}
	return f.Path
}

func isTestPath(path string) bool {
	base := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		base = path[i+1:]
	}
	for _, pat := range testPathPatterns {
		if ok, _ := doublestar.Match(pat, base); ok {
			return true
		}
	}
	return false
}

// isPublicSymbol approximates "exported/public" per the language
// conventions §4.10 names: a `pub` modifier in the recorded signature
// (Rust), otherwise a name starting with an ASCII letter rather than an
// underscore (Python/JS/TS's default-export convention). Go's
// capitalization rule needs the file path, so Analyze applies it to .go
// files itself.
func isPublicSymbol(sym store.Symbol) bool {
	if strings.Contains(sym.Signature, "pub ") || strings.HasPrefix(strings.TrimSpace(sym.Signature), "pub") {
		return true
	}
	if sym.Name == "" {
		return false
	}
	if strings.HasPrefix(sym.Name, "_") {
		return false
	}
	first := sym.Name[0]
	return first >= 'A' && first <= 'Z' || (first >= 'a' && first <= 'z')
}

// moduleCentrality sums the MODULE_DEPENDS_ON fan-in and fan-out for the
// top-level module containing path (§4.10's "file centrality" signal),
// cached per call to Analyze since many affected items share a module.
func moduleCentrality(ctx context.Context, s *store.Store, path string, cache map[string]int) int {
	if path == "" {
		return 0
	}
	mod := path
	if i := strings.IndexByte(path, '/'); i >= 0 {
		mod = path[:i]
	}
	if v, ok := cache[mod]; ok {
		return v
	}
	edges, err := s.ModuleDependencyEdges(ctx, mod, "")
	if err != nil {
		cache[mod] = 0
		return 0
	}
	cache[mod] = len(edges)
	return len(edges)
}
