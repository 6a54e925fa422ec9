// Package resolve implements the Resolver (C7): turns heuristic Callsites
// into candidate CALL edges using a staged confidence model, and
// aggregates import traffic between module groupings into
// MODULE_DEPENDS_ON edges. Runs after the Extractor/Store have already
// persisted a file's Symbols/Callsites/structural edges.
//
// Grounded on standardbeagle-lci's internal/symbollinker/go_resolver.go
// (module-name-prefix import classification) and linker_engine.go (the
// two-pass "extract everything, then link" shape — this package plays
// the "link" half, against the Store rather than an in-memory engine).
package resolve

import (
	"context"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/pui/internal/idcodec"
	"github.com/standardbeagle/pui/internal/store"
)

// Confidence bands (§4.7). Each constant is the representative value used
// within its band; real data would score anywhere in the band, but this
// package's signals are binary (matched or not), so one value per band is
// sufficient.
const (
	confSemantic           = 1.00
	confQualifiedUnique    = 0.95
	confQualifiedSameFile  = 0.92
	confQualifiedAmbiguous = 0.90
	confUnqualifiedSingle  = 0.85
	confUnqualifiedRepo    = 0.80
	confMultiCandidate     = 0.55
	confDynamicReceiver    = 0.25
)

// SemanticProvider is the hook future LSP/SCIP-backed resolution plugs
// into (§4.7): when present, its answers are tried before the heuristic
// bands and always resolve at confidence 1.0.
type SemanticProvider interface {
	Definitions(ctx context.Context, file string, line, col int) ([]store.Symbol, error)
}

// Resolver converts stored Callsites into CALL edges and stored imports
// into MODULE_DEPENDS_ON edges.
type Resolver struct {
	store    *store.Store
	semantic SemanticProvider

	// OnEdgeConfidence, if set, is called with each CALL edge's confidence
	// as it is resolved — the Engine wires this to the
	// pui_resolve_edge_confidence histogram (§4.13).
	OnEdgeConfidence func(float64)
}

// New builds a Resolver over s. semantic may be nil (no semantic provider
// configured; every edge is heuristic).
func New(s *store.Store, semantic SemanticProvider) *Resolver {
	return &Resolver{store: s, semantic: semantic}
}

// ResolveFile recomputes CALL edges for every callsite in fileID and
// upserts them. Safe to call repeatedly (idempotent upsert, invariant 7:
// resolved provenance never loses to a later heuristic pass).
func (r *Resolver) ResolveFile(ctx context.Context, fileID int64) error {
	callsites, err := r.store.GetCallsitesByFile(ctx, fileID)
	if err != nil {
		return err
	}
	if len(callsites) == 0 {
		return nil
	}

	fileSymbols, err := r.store.FindSymbolsByFile(ctx, fileID)
	if err != nil {
		return err
	}

	var filePath, language string
	if f, err := r.store.FileByID(ctx, fileID); err == nil && f != nil {
		language = f.Language
		if r.semantic != nil {
			filePath = f.Path
		}
	}

	var edges []store.Edge
	for _, cs := range callsites {
		if cs.EnclosingSymID == nil {
			continue // file-scope call with no enclosing definition; nothing to attribute it to
		}
		edge, err := r.resolveCallsite(ctx, fileID, filePath, cs, fileSymbols)
		if err != nil {
			return err
		}
		if edge != nil {
			if language == "cpp" && edge.Provenance == store.ProvenanceHeuristic && edge.Confidence > 0.39 {
				edge.Confidence = 0.39
			}
			edges = append(edges, *edge)
			if r.OnEdgeConfidence != nil {
				r.OnEdgeConfidence(edge.Confidence)
			}
		}
	}
	if len(edges) == 0 {
		return nil
	}
	return r.store.UpsertEdges(ctx, fileID, edges)
}

// resolveCallsite scores and picks a single target for one callsite, or
// returns nil if no plausible target symbol exists at all (a dynamic
// call with zero name matches anywhere in the repo cannot become an edge:
// the edges table requires a real target_id).
func (r *Resolver) resolveCallsite(ctx context.Context, fileID int64, filePath string, cs store.Callsite, fileSymbols []store.Symbol) (*store.Edge, error) {
	if r.semantic != nil && filePath != "" {
		if defs, err := r.semantic.Definitions(ctx, filePath, cs.Line, cs.Col); err == nil && len(defs) > 0 {
			return &store.Edge{
				SourceID:   *cs.EnclosingSymID,
				TargetID:   defs[0].ID,
				Kind:       store.EdgeCall,
				Confidence: confSemantic,
				Provenance: store.ProvenanceResolved,
				Metadata:   "semantic_provider",
			}, nil
		}
	}

	qualifier, name, qualified := splitQualified(cs.CalleeText)

	candidates, err := r.store.FindSymbolsByName(ctx, name)
	if err != nil {
		return nil, err
	}
	candidates = filterCallable(candidates)
	if len(candidates) == 0 {
		return nil, nil
	}

	var sameFile []store.Symbol
	for _, c := range candidates {
		if c.FileID == fileID {
			sameFile = append(sameFile, c)
		}
	}

	var target store.Symbol
	var confidence float64

	switch {
	case qualified && hasLocalBinding(fileSymbols, qualifier):
		switch {
		case len(candidates) == 1:
			target, confidence = candidates[0], confQualifiedUnique
		case len(sameFile) == 1:
			target, confidence = sameFile[0], confQualifiedSameFile
		default:
			target, confidence = pickTarget(candidates, fileID), confQualifiedAmbiguous
		}
	case qualified:
		// Qualifier present but doesn't match any known import or local
		// type/definition: the receiver's identity is unknown to this
		// file (dynamic/higher-order callee per §4.7's lowest band).
		target, confidence = pickTarget(candidates, fileID), confDynamicReceiver
	case len(sameFile) == 1:
		target, confidence = sameFile[0], confUnqualifiedSingle
	case len(candidates) == 1:
		target, confidence = candidates[0], confUnqualifiedRepo
	default:
		target, confidence = pickTarget(candidates, fileID), confMultiCandidate
	}

	return &store.Edge{
		SourceID:   *cs.EnclosingSymID,
		TargetID:   target.ID,
		Kind:       store.EdgeCall,
		Confidence: confidence,
		Provenance: store.ProvenanceHeuristic,
		Metadata:   "callee_text=" + cs.CalleeText,
	}, nil
}

// filterCallable keeps only symbols a CALL edge can plausibly target.
func filterCallable(symbols []store.Symbol) []store.Symbol {
	out := symbols[:0:0]
	for _, s := range symbols {
		if s.Kind == store.KindFunction || s.Kind == store.KindMethod {
			out = append(out, s)
		}
	}
	return out
}

// hasLocalBinding reports whether qualifier names a known import (by its
// last path segment, approximating the bound identifier) or a local
// type/class/struct/interface definition in the same file — the signal
// the Resolver treats as "this qualifier is not an opaque variable".
func hasLocalBinding(fileSymbols []store.Symbol, qualifier string) bool {
	for _, s := range fileSymbols {
		if s.Kind == store.KindImport && lastSegment(s.Name) == qualifier {
			return true
		}
		if (s.Kind == store.KindStruct || s.Kind == store.KindClass || s.Kind == store.KindInterface || s.Kind == store.KindEnum) && s.Name == qualifier {
			return true
		}
	}
	return false
}

func lastSegment(importText string) string {
	importText = strings.TrimSuffix(importText, "/")
	if i := strings.LastIndexAny(importText, "/.:"); i >= 0 {
		return importText[i+1:]
	}
	return importText
}

// splitQualified splits "qualifier.name" callee text produced by
// internal/extract; calleeText with no '.' is unqualified.
func splitQualified(calleeText string) (qualifier, name string, qualified bool) {
	i := strings.LastIndexByte(calleeText, '.')
	if i < 0 {
		return "", calleeText, false
	}
	return calleeText[:i], calleeText[i+1:], true
}

// pickTarget applies §4.7's deterministic tie-break: same file first,
// then lowest symbol id.
func pickTarget(candidates []store.Symbol, fileID int64) store.Symbol {
	sorted := make([]store.Symbol, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		iLocal, jLocal := sorted[i].FileID == fileID, sorted[j].FileID == fileID
		if iLocal != jLocal {
			return iLocal
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted[0]
}

// moduleOf approximates a language-aware module grouping by the file
// path's top-level directory component (best effort per §4.7 — a real
// Go module/npm workspace/Cargo crate/Python package boundary requires
// reading manifests, which internal/manifest does for Dependency rows;
// this proxy is cheap and store-only, consistent with how Resolver
// already infers structure heuristically everywhere else).
func moduleOf(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return "."
}

func moduleStableID(name string) string {
	return idcodec.Encode(xxhash.Sum64String("module|" + name))
}

// ResolveModuleDependencies aggregates import edges between every pair of
// distinct module groupings found in the store into MODULE_DEPENDS_ON
// edges (§4.7), run once per full indexing pass (not per file, since it
// needs the complete file set to group modules).
func (r *Resolver) ResolveModuleDependencies(ctx context.Context) error {
	files, err := r.store.AllFiles(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	moduleRepFile := make(map[string]int64)
	fileModule := make(map[int64]string, len(files))
	for _, f := range files {
		m := moduleOf(f.Path)
		fileModule[f.ID] = m
		if _, ok := moduleRepFile[m]; !ok {
			moduleRepFile[m] = f.ID
		}
	}

	moduleSymbolID := make(map[string]int64, len(moduleRepFile))
	for name, repFileID := range moduleRepFile {
		id, err := r.store.UpsertModuleSymbol(ctx, repFileID, moduleStableID(name), name)
		if err != nil {
			return err
		}
		moduleSymbolID[name] = id
	}

	edgesByFile := make(map[int64][]store.Edge)
	for _, f := range files {
		srcModule := fileModule[f.ID]
		symbols, err := r.store.FindSymbolsByFile(ctx, f.ID)
		if err != nil {
			return err
		}
		seen := make(map[string]bool)
		for _, sym := range symbols {
			if sym.Kind != store.KindImport {
				continue
			}
			targetModule := matchModule(sym.Name, moduleRepFile, srcModule)
			if targetModule == "" || seen[targetModule] {
				continue
			}
			seen[targetModule] = true
			edgesByFile[f.ID] = append(edgesByFile[f.ID], store.Edge{
				SourceID:   moduleSymbolID[srcModule],
				TargetID:   moduleSymbolID[targetModule],
				Kind:       store.EdgeModuleDependsOn,
				Confidence: 0.7,
				Provenance: store.ProvenanceHeuristic,
				Metadata:   "import-text=" + sym.Name,
			})
		}
	}

	for fileID, edges := range edgesByFile {
		if err := r.store.UpsertEdges(ctx, fileID, edges); err != nil {
			return err
		}
	}
	return nil
}

// matchModule finds a registered module whose directory name appears as
// a substring of importText, excluding srcModule itself.
func matchModule(importText string, modules map[string]int64, srcModule string) string {
	for name := range modules {
		if name == srcModule || name == "." {
			continue
		}
		if strings.Contains(importText, name) {
			return name
		}
	}
	return ""
}
