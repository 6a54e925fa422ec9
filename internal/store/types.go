package store

import "time"

// SymbolKind enumerates the Symbol.Kind values from the Data Model (§3).
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindClass     SymbolKind = "class"
	KindStruct    SymbolKind = "struct"
	KindInterface SymbolKind = "interface"
	KindEnum      SymbolKind = "enum"
	KindVariable  SymbolKind = "variable"
	KindModule    SymbolKind = "module"
	KindImport    SymbolKind = "import"
)

// EdgeKind enumerates the Edge.Kind values from the Data Model (§3).
type EdgeKind string

const (
	EdgeCall             EdgeKind = "CALL"
	EdgeImport           EdgeKind = "IMPORT"
	EdgeInherit          EdgeKind = "INHERIT"
	EdgeContain          EdgeKind = "CONTAIN"
	EdgeModuleDependsOn  EdgeKind = "MODULE_DEPENDS_ON"
	EdgeExports          EdgeKind = "EXPORTS"
)

// Provenance records where an Edge came from (§3).
type Provenance string

const (
	ProvenanceHeuristic Provenance = "heuristic"
	ProvenanceResolved  Provenance = "resolved"
)

// File is a source artifact within the repo root (§3).
type File struct {
	ID         int64
	Path       string // repo-root-relative, forward-slash, NFC
	Language   string
	ContentHash string // sha256 hex, always the full-content digest
	PrefixHash  string // xxhash64 of the first 4KiB, a cheap pre-check before re-hashing large files
	Size        int64
	ModifiedAt  time.Time
	IndexedAt   time.Time
}

// Symbol is a named definition in a file (§3).
type Symbol struct {
	ID            int64
	StableID      string // base63(xxhash64(path|kind|qualifiedname|startline))
	FileID        int64
	Kind          SymbolKind
	Name          string
	QualifiedName string
	StartLine     int
	StartCol      int
	EndLine       int
	EndCol        int
	Signature     string
	Doc           string
	ParentID      *int64 // nested definitions
}

// Callsite is a concrete call occurrence in source (§3).
type Callsite struct {
	ID             int64
	FileID         int64
	Line           int
	Col            int
	CalleeText     string
	EnclosingSymID *int64
	ImportsJSON    string // raw imports-in-scope metadata, JSON-encoded
}

// Edge is a typed relationship between two symbols (§3).
type Edge struct {
	ID          int64
	SourceID    int64
	TargetID    int64
	Kind        EdgeKind
	Confidence  float64
	Provenance  Provenance
	FileID      int64
	Metadata    string // why this edge was created, free-form
}

// Dependency is one row per external package/crate/module pulled from a
// manifest lockfile (SPEC_FULL §3.1).
type Dependency struct {
	ID        int64
	Name      string
	Version   string
	Ecosystem string // npm | cargo | go | pip
	Lockfile  string
	IsDev     bool
}

const MetaSchemaVersionKey = "schema_version"
