// Package extract implements the Extractor (C5): turns a parsed tree-sitter
// tree into the three streams Store.ReplaceFile expects — Symbols,
// Callsites, and structural Edges (CONTAIN, best-effort INHERIT). CALL
// edges are left to internal/resolve, which has cross-file context this
// package does not.
//
// Extract assigns each Symbol a temporary, file-local int64 ID so that
// ParentID/Edge.SourceID/Edge.TargetID/Callsite.EnclosingSymID can
// reference each other before any row exists in the database; ReplaceFile
// remaps these temporary IDs to real row IDs during insertion.
//
// Grounded on standardbeagle-lci's internal/symbollinker/extractor.go
// (ScopeManager/BaseExtractor shape, GetNodeText/GetNodeLocation helpers)
// and internal/parser/parser.go's unified single-pass capture switch
// (function/method/class/struct/interface/enum/import/call dispatch).
package extract

import (
	"sort"
	"strings"

	"github.com/standardbeagle/pui/internal/parser"
	"github.com/standardbeagle/pui/internal/store"
)

// Result is the per-file output handed to store.FileReplacement.
type Result struct {
	Symbols   []store.Symbol
	Callsites []store.Callsite
	Edges     []store.Edge
}

// definition pairs an extracted Symbol (with its temporary ID already
// assigned) with the byte span and header text needed for nesting and
// inheritance detection.
type definition struct {
	sym        store.Symbol
	startByte  uint
	endByte    uint
	headerText string
}

// Extract runs language's capture query over tree and builds a Result.
// path is the repo-relative path every extracted Symbol is implicitly
// scoped to (the Store assigns FileID from the caller's ReplaceFile
// call, not from this Result).
func Extract(path, language string, tree *parser.Tree) Result {
	matches := tree.Matches()

	var defs []definition
	var imports []store.Symbol
	var calls []parser.Match
	var impls []parser.Match

	for _, m := range matches {
		main, kind, ok := mainCapture(m)
		if !ok {
			continue
		}

		switch kind {
		case "function", "method", "class", "struct", "interface", "enum":
			defs = append(defs, buildDefinition(path, kind, m, main))
		case "import":
			imports = append(imports, buildImportSymbol(path, m, main))
		case "call":
			calls = append(calls, m)
		case "impl":
			impls = append(impls, m)
		}
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].startByte < defs[j].startByte })

	var nextID int64 = 1
	for i := range defs {
		defs[i].sym.ID = nextID
		nextID++
	}
	for i := range imports {
		imports[i].ID = nextID
		nextID++
	}

	edges := containEdges(defs)
	edges = append(edges, inheritEdges(defs, language)...)
	edges = append(edges, implEdges(defs, impls)...)

	symbols := make([]store.Symbol, 0, len(defs)+len(imports))
	for _, d := range defs {
		symbols = append(symbols, d.sym)
	}
	symbols = append(symbols, imports...)

	callsites := make([]store.Callsite, 0, len(calls))
	for _, m := range calls {
		name, ok := m.ByName["call.name"]
		if !ok {
			continue
		}
		calleeText := name.Text
		if qualifier, ok := m.ByName["call.qualifier"]; ok {
			// Qualified calls (pkg.fn / obj.method) are stored as
			// "qualifier.name" so the Resolver can split them back apart
			// without a dedicated schema column.
			calleeText = qualifier.Text + "." + name.Text
		}
		pos := name.Node.StartPosition()
		cs := store.Callsite{
			Line:       int(pos.Row) + 1,
			Col:        int(pos.Column) + 1,
			CalleeText: calleeText,
		}
		if enclosingID := enclosingSymbolID(defs, name.Node.StartByte()); enclosingID != 0 {
			cs.EnclosingSymID = &enclosingID
		}
		callsites = append(callsites, cs)
	}

	return Result{Symbols: symbols, Callsites: callsites, Edges: edges}
}

// mainCapture returns the capture naming a whole definition/import/call
// (the one whose name has no "." suffix), along with that bare name.
func mainCapture(m parser.Match) (parser.Capture, string, bool) {
	for _, c := range m.Captures {
		if !strings.Contains(c.Name, ".") {
			return c, c.Name, true
		}
	}
	return parser.Capture{}, "", false
}

func buildDefinition(path, kind string, m parser.Match, main parser.Capture) definition {
	name := captureText(m, kind+".name")
	if name == "" {
		name = captureText(m, "type.name")
	}
	if name == "" {
		name = main.Text
	}
	startPos := main.Node.StartPosition()
	endPos := main.Node.EndPosition()
	symKind := symbolKindFor(kind)

	sym := store.Symbol{
		StableID:      StableSymbolID(path, symKind, name, int(startPos.Row)+1),
		Kind:          symKind,
		Name:          name,
		QualifiedName: name, // cross-file qualification is resolved downstream, where module grouping is known
		StartLine:     int(startPos.Row) + 1,
		StartCol:      int(startPos.Column) + 1,
		EndLine:       int(endPos.Row) + 1,
		EndCol:        int(endPos.Column) + 1,
		Signature:     signatureFor(kind, main),
	}

	return definition{
		sym:        sym,
		startByte:  main.Node.StartByte(),
		endByte:    main.Node.EndByte(),
		headerText: headerLine(main.Text),
	}
}

func buildImportSymbol(path string, m parser.Match, main parser.Capture) store.Symbol {
	raw := captureText(m, "import.path")
	if raw == "" {
		raw = captureText(m, "import.source")
	}
	if raw == "" {
		raw = main.Text
	}
	raw = strings.Trim(strings.TrimSpace(raw), `"'`)
	startPos := main.Node.StartPosition()
	endPos := main.Node.EndPosition()
	return store.Symbol{
		StableID:      StableSymbolID(path, store.KindImport, raw, int(startPos.Row)+1),
		Kind:          store.KindImport,
		Name:          raw,
		QualifiedName: raw,
		StartLine:     int(startPos.Row) + 1,
		StartCol:      int(startPos.Column) + 1,
		EndLine:       int(endPos.Row) + 1,
		EndCol:        int(endPos.Column) + 1,
	}
}

func captureText(m parser.Match, name string) string {
	if c, ok := m.ByName[name]; ok {
		return c.Text
	}
	return ""
}

func symbolKindFor(captureKind string) store.SymbolKind {
	switch captureKind {
	case "function":
		return store.KindFunction
	case "method":
		return store.KindMethod
	case "class":
		return store.KindClass
	case "struct":
		return store.KindStruct
	case "interface":
		return store.KindInterface
	case "enum":
		return store.KindEnum
	default:
		return store.KindVariable
	}
}

// signatureFor extracts the verbatim parameter-list + return-annotation
// text: everything in the definition's header up to its first '{' or ':'
// (covers brace-bodied and Python's colon-bodied definitions alike).
func signatureFor(kind string, main parser.Capture) string {
	if kind != "function" && kind != "method" {
		return ""
	}
	return headerLine(main.Text)
}

func headerLine(text string) string {
	if i := strings.IndexAny(text, "{:"); i >= 0 {
		return strings.TrimSpace(text[:i])
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return strings.TrimSpace(text[:i])
	}
	return strings.TrimSpace(text)
}

// containEdges emits a CONTAIN edge (and sets ParentID) from each
// definition to the tightest other definition whose byte span encloses
// it, via interval containment rather than AST field-name traversal so
// the same logic works across every supported language.
func containEdges(defs []definition) []store.Edge {
	var edges []store.Edge
	for i := range defs {
		parent := -1
		for j := range defs {
			if i == j {
				continue
			}
			if defs[j].startByte <= defs[i].startByte && defs[j].endByte >= defs[i].endByte {
				if parent == -1 || (defs[j].endByte-defs[j].startByte) < (defs[parent].endByte-defs[parent].startByte) {
					parent = j
				}
			}
		}
		if parent == -1 {
			continue
		}
		parentID := defs[parent].sym.ID
		defs[i].sym.ParentID = &parentID
		edges = append(edges, store.Edge{
			SourceID:   parentID,
			TargetID:   defs[i].sym.ID,
			Kind:       store.EdgeContain,
			Confidence: 1.0,
			Provenance: store.ProvenanceResolved,
			Metadata:   "byte-range-containment",
		})
	}
	return edges
}

// inheritEdges best-effort detects extends/implements/"impl X for Y"
// relationships from each definition's own header text and emits INHERIT
// edges between two definitions in the same file. Cross-file bases are
// left to the Resolver, which has import context this package does not.
func inheritEdges(defs []definition, language string) []store.Edge {
	byName := make(map[string]int64, len(defs))
	for _, d := range defs {
		byName[d.sym.Name] = d.sym.ID
	}

	var edges []store.Edge
	for _, d := range defs {
		for _, base := range baseNames(language, d.headerText) {
			targetID, ok := byName[base]
			if !ok || targetID == d.sym.ID {
				continue
			}
			edges = append(edges, store.Edge{
				SourceID:   d.sym.ID,
				TargetID:   targetID,
				Kind:       store.EdgeInherit,
				Confidence: 0.7, // header-text scan, not a semantic resolution; see §4.7 confidence bands
				Provenance: store.ProvenanceHeuristic,
				Metadata:   "same-file-header-scan:" + base,
			})
		}
	}
	return edges
}

// implEdges handles Rust's `impl Trait for Type` shape, which (unlike
// JS/Python's inline base-class lists) names the two sides in separate
// fields of a node with no Symbol of its own. Resolved only against
// same-file struct/trait definitions, same as inheritEdges.
func implEdges(defs []definition, impls []parser.Match) []store.Edge {
	if len(impls) == 0 {
		return nil
	}
	byName := make(map[string]int64, len(defs))
	for _, d := range defs {
		byName[d.sym.Name] = d.sym.ID
	}

	var edges []store.Edge
	for _, m := range impls {
		traitName := captureText(m, "impl.trait")
		typeName := captureText(m, "impl.type")
		traitID, traitOK := byName[traitName]
		typeID, typeOK := byName[typeName]
		if !traitOK || !typeOK {
			continue
		}
		edges = append(edges, store.Edge{
			SourceID:   typeID,
			TargetID:   traitID,
			Kind:       store.EdgeInherit,
			Confidence: 0.9,
			Provenance: store.ProvenanceHeuristic,
			Metadata:   "impl-for:" + traitName,
		})
	}
	return edges
}

// baseNames extracts candidate base-type identifiers from a definition's
// header line using keyword scanning rather than AST field lookups, to
// stay language-facade-agnostic and stdlib-only.
func baseNames(language, header string) []string {
	switch language {
	case parser.JavaScript, parser.TypeScript:
		return afterKeyword(header, "extends", "implements")
	case parser.Python:
		i, j := strings.IndexByte(header, '('), strings.LastIndexByte(header, ')')
		if i < 0 || j <= i {
			return nil
		}
		var out []string
		for _, part := range strings.Split(header[i+1:j], ",") {
			part = strings.TrimSpace(part)
			if part != "" && part != "object" {
				out = append(out, part)
			}
		}
		return out
	case parser.Rust:
		if strings.HasPrefix(strings.TrimSpace(header), "impl") {
			return afterKeyword(header, "for")
		}
		return nil
	default:
		return nil
	}
}

func afterKeyword(header string, keywords ...string) []string {
	var out []string
	fields := strings.Fields(header)
	for i, f := range fields {
		for _, kw := range keywords {
			if f == kw && i+1 < len(fields) {
				out = append(out, strings.TrimRight(fields[i+1], "{,"))
			}
		}
	}
	return out
}

// enclosingSymbolID returns the temporary ID of the tightest definition
// enclosing a byte offset, or 0 if the offset is at file scope.
func enclosingSymbolID(defs []definition, offset uint) int64 {
	best := -1
	for i, d := range defs {
		if d.startByte <= offset && d.endByte >= offset {
			if best == -1 || (d.endByte-d.startByte) < (defs[best].endByte-defs[best].startByte) {
				best = i
			}
		}
	}
	if best == -1 {
		return 0
	}
	return defs[best].sym.ID
}
