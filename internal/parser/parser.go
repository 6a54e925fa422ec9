// Package parser implements the Parser Facade (C4): one tree-sitter
// parser/query pair per supported language, exposing a uniform
// Parse(language, content) -> tree + named captures surface to
// internal/extract.
//
// Grounded on standardbeagle-lci's internal/parser/parser_language_setup.go
// (per-language query strings, defensive copy-on-parse pattern) and
// internal/parser/parser.go's extractBasicSymbolsStringRef (QueryCursor
// Matches/CaptureNames usage, the "typed nil query" tree-sitter binding
// quirk).
package parser

import (
	"fmt"
	"sync"
	"unsafe"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/standardbeagle/pui/internal/engineerr"
)

// Supported language identifiers, matching store.File.Language values.
const (
	Go         = "go"
	Python     = "python"
	JavaScript = "javascript"
	TypeScript = "typescript"
	Rust       = "rust"
	Cpp        = "cpp"
)

type languageSetup struct {
	language *sitter.Language
	query    *sitter.Query
}

// Facade owns one compiled *sitter.Query per language. Queries are
// immutable after setup and safe to share across goroutines; a fresh
// *sitter.Parser is created per Parse call since tree-sitter parsers are
// not safe for concurrent reuse (§5's bounded parallel parse workers each
// get their own parser instance transparently).
type Facade struct {
	mu   sync.RWMutex
	langs map[string]languageSetup
}

// New builds a Facade with the required initial language set (§4.4): Go,
// Python, JavaScript, TypeScript, Rust, plus file-level-only C/C++.
func New() *Facade {
	f := &Facade{langs: make(map[string]languageSetup)}
	f.setup(Go, tree_sitter_go.Language(), goQuery)
	f.setup(Python, tree_sitter_python.Language(), pythonQuery)
	f.setup(JavaScript, tree_sitter_javascript.Language(), javascriptQuery)
	f.setup(TypeScript, tree_sitter_typescript.LanguageTypescript(), typescriptQuery)
	f.setup(Rust, tree_sitter_rust.Language(), rustQuery)
	f.setup(Cpp, tree_sitter_cpp.Language(), cppQuery)
	return f
}

func (f *Facade) setup(name string, langPtr unsafe.Pointer, queryStr string) {
	language := sitter.NewLanguage(langPtr)
	query, _ := sitter.NewQuery(language, queryStr)
	// The tree-sitter Go binding can return a typed-nil error on success;
	// check the query pointer itself rather than the error.
	if query == nil {
		return
	}
	f.langs[name] = languageSetup{language: language, query: query}
}

// Supports reports whether language has a registered parser/query pair.
func (f *Facade) Supports(language string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.langs[language]
	return ok
}

// Tree wraps a parsed tree-sitter tree with the language it was parsed
// with and the exact byte buffer tree-sitter holds references into (the
// parser mutates/retains its input, so callers must keep this buffer
// alive for as long as the Tree is used).
type Tree struct {
	language string
	tree     *sitter.Tree
	content  []byte
	query    *sitter.Query
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
	}
}

// Root returns the tree's root node.
func (t *Tree) Root() sitter.Node {
	return t.tree.RootNode()
}

// HasErrors reports whether the parse produced any ERROR nodes, used by
// the Indexer to decide whether to log a partial-parse diagnostic (§4.4:
// parse errors are non-fatal, partial symbols still extracted).
func (t *Tree) HasErrors() bool {
	return t.tree.RootNode().HasError()
}

// Capture is one named capture from a query match, carrying both the
// node and its source text.
type Capture struct {
	Name string
	Node sitter.Node
	Text string
}

// Match groups the captures that fired together for one query match,
// keyed by capture name for the common case of looking up a `.name`
// sub-capture belonging to a `function`/`class`/etc. main capture.
type Match struct {
	Captures []Capture
	ByName   map[string]Capture
}

// Parse parses content as language, returning a Tree the caller must
// Close. Tree-sitter mutates/retains the input buffer, so Parse makes a
// defensive copy (copy-on-parse), matching the teacher's protection of
// its own immutable content store.
func (f *Facade) Parse(language string, content []byte) (*Tree, error) {
	f.mu.RLock()
	setup, ok := f.langs[language]
	f.mu.RUnlock()
	if !ok {
		return nil, engineerr.New(engineerr.KindParseFailure, "parser.parse", fmt.Errorf("unsupported language %q", language))
	}

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(setup.language); err != nil {
		return nil, engineerr.New(engineerr.KindParseFailure, "parser.set_language", err)
	}

	buf := make([]byte, len(content))
	copy(buf, content)

	tree := parser.Parse(buf, nil)
	if tree == nil {
		return nil, engineerr.New(engineerr.KindParseFailure, "parser.parse", fmt.Errorf("tree-sitter returned no tree for language %q", language))
	}
	return &Tree{language: language, tree: tree, content: buf, query: setup.query}, nil
}

// Matches runs the language's capture query over the tree, returning one
// Match per query match in document order.
func (t *Tree) Matches() []Match {
	if t.query == nil {
		return nil
	}
	qc := sitter.NewQueryCursor()
	defer qc.Close()

	matches := qc.Matches(t.query, t.tree.RootNode(), t.content)
	names := t.query.CaptureNames()

	var out []Match
	for {
		m := matches.Next()
		if m == nil {
			break
		}
		match := Match{ByName: make(map[string]Capture, len(m.Captures))}
		for _, c := range m.Captures {
			name := names[c.Index]
			text := string(t.content[c.Node.StartByte():c.Node.EndByte()])
			capture := Capture{Name: name, Node: c.Node, Text: text}
			match.Captures = append(match.Captures, capture)
			match.ByName[name] = capture
		}
		out = append(out, match)
	}
	return out
}

// Content exposes the buffer the tree was parsed from, for byte-range
// text extraction by internal/extract.
func (t *Tree) Content() []byte { return t.content }
