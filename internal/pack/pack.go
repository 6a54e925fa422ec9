// Package pack implements the Pack Generators (C11): RepoMap, Zoom, and
// Impact assembly over internal/tokenest's budget/truncation machinery,
// producing deterministic Markdown (or a structured JSON form) bounded by
// a caller-supplied token budget.
//
// Grounded on standardbeagle-lci's internal/display formatting helpers and
// internal/mcp/formatter_compact.go's compact, strings.Builder-based
// response assembly (no templating library is used there, so none is used
// here either).
package pack

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/pui/internal/engineerr"
	"github.com/standardbeagle/pui/internal/store"
	"github.com/standardbeagle/pui/internal/tokenest"
)

// SchemaVersion is the structured-output schema version (§6).
const SchemaVersion = 1

// Format selects the pack's wire representation.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Type identifies which of the three pack kinds was generated.
type Type string

const (
	TypeRepoMap Type = "repomap"
	TypeZoom    Type = "zoom"
	TypeImpact  Type = "impact"
)

// Budget is a (default, max) token pair (§4.11's table).
type Budget struct {
	Default int
	Max     int
}

var (
	RepoMapBudget = Budget{Default: 8000, Max: 16000}
	ZoomBudget    = Budget{Default: 4000, Max: 8000}
	ImpactBudget  = Budget{Default: 6000, Max: 12000}
)

// Options configures one pack generation call.
type Options struct {
	Format    Format
	MaxTokens int // 0 selects the pack type's default budget
}

// Pack is the rendered, budget-enforced output of one generator call.
type Pack struct {
	Type          Type
	SchemaVersion int
	IndexVersion  string
	Format        Format
	Content       string // Markdown text, or a JSON document when Format==FormatJSON
	Truncated     bool
	GeneratedAt   time.Time // the single labeled non-determinism source (§4.11)
}

// section is one named content block in a pack, assembled in the fixed
// order §4.11's table specifies before truncation is applied.
type section struct {
	Heading string
	Body    string // Markdown body, NOT including the heading line
	Mandatory bool
}

func budgetFor(b Budget, requested int) int {
	if requested <= 0 {
		return b.Default
	}
	if requested > b.Max {
		return b.Max
	}
	return requested
}

// render joins sections as ATX-header Markdown (matching tokenest's
// section-splitting contract: "^#+ " starts a new truncatable unit) and
// truncates to budget. The first section (Header) and the Metadata
// section are never truncated away on their own since tokenest reserves
// room for at least the first section and always keeps growing from the
// front.
func render(typ Type, sections []section, budget int, indexVersion string, generatedAt time.Time) (Pack, error) {
	var b strings.Builder
	for _, sec := range sections {
		b.WriteString("# ")
		b.WriteString(sec.Heading)
		b.WriteString("\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	full := b.String()

	out, truncated, err := tokenest.Truncate(full, budget)
	if err != nil {
		// BudgetTooSmall: fall back to the mandatory metadata section alone,
		// followed by a note carrying the error.
		for i := len(sections) - 1; i >= 0; i-- {
			sec := sections[i]
			if sec.Mandatory {
				return Pack{
					Type: typ, SchemaVersion: SchemaVersion, IndexVersion: indexVersion,
					Format: FormatMarkdown, Content: "# " + sec.Heading + "\n" + sec.Body + "\n_" + err.Error() + "_\n",
					Truncated: true, GeneratedAt: generatedAt,
				}, nil
			}
		}
		return Pack{}, err
	}

	return Pack{
		Type: typ, SchemaVersion: SchemaVersion, IndexVersion: indexVersion,
		Format: FormatMarkdown, Content: out, Truncated: truncated, GeneratedAt: generatedAt,
	}, nil
}

// structuredDoc is the JSON form of a pack: schema_version, type,
// index_version, generated_at and truncated at the top level, and every
// section's body (Metadata included) under "sections", keyed by heading.
// There is no separate top-level metadata object.
type structuredDoc struct {
	SchemaVersion int               `json:"schema_version"`
	Type          Type              `json:"type"`
	IndexVersion  string            `json:"index_version"`
	GeneratedAt   time.Time         `json:"generated_at"`
	Truncated     bool              `json:"truncated"`
	Sections      map[string]string `json:"sections"`
}

// toJSON re-renders a Pack's sections as the structured document instead
// of Markdown; called by generators when Options.Format==FormatJSON.
func toJSON(typ Type, sections []section, indexVersion string, generatedAt time.Time, truncated bool) (Pack, error) {
	doc := structuredDoc{
		SchemaVersion: SchemaVersion, Type: typ, IndexVersion: indexVersion,
		GeneratedAt: generatedAt, Truncated: truncated, Sections: make(map[string]string, len(sections)),
	}
	for _, sec := range sections {
		doc.Sections[sec.Heading] = sec.Body
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Pack{}, engineerr.New(engineerr.KindInternal, "pack.to_json", err)
	}
	return Pack{
		Type: typ, SchemaVersion: SchemaVersion, IndexVersion: indexVersion,
		Format: FormatJSON, Content: string(raw), Truncated: truncated, GeneratedAt: generatedAt,
	}, nil
}

// indexVersion derives a short, deterministic fingerprint of the current
// content-hash set (§4.11's determinism invariant: pack bytes are a
// function of schema version + content hashes + parameters).
func indexVersion(ctx context.Context, s *store.Store) (string, error) {
	files, err := s.AllFiles(ctx)
	if err != nil {
		return "", err
	}
	hashes := make([]string, 0, len(files))
	for _, f := range files {
		hashes = append(hashes, f.ContentHash)
	}
	sort.Strings(hashes)
	return fmt.Sprintf("%016x", xxhash.Sum64String(strings.Join(hashes, "|"))), nil
}

// metadataBody renders the mandatory Metadata section, the single place a
// timestamp appears (clearly labeled per §4.11).
func metadataBody(indexVersion string, generatedAt time.Time) string {
	return fmt.Sprintf("- schema_version: %d\n- index_version: %s\n- generated_at: %s (non-deterministic)\n",
		SchemaVersion, indexVersion, generatedAt.UTC().Format(time.RFC3339))
}

// moreAvailable renders the "N more available via zoom" row-level marker
// for sections that list items pack generators truncate themselves
// (ahead of tokenest's own budget enforcement), e.g. capping a symbol
// index at a fixed row count before rendering.
func moreAvailable(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("\n_%d more available via zoom_\n", n)
}
