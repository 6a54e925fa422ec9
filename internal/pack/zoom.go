package pack

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/standardbeagle/pui/internal/engineerr"
	"github.com/standardbeagle/pui/internal/graph"
	"github.com/standardbeagle/pui/internal/idcodec"
	"github.com/standardbeagle/pui/internal/store"
)

const zoomDefaultDepth = 1

// ResolveSymbol looks up one symbol by base-63 id, exact name, or
// `path:line` position — the three forms §6's `zoom <symbol-id|name|path:line>`
// argument accepts.
func ResolveSymbol(ctx context.Context, s *store.Store, query string) (*store.Symbol, error) {
	if id, err := idcodec.DecodeSymbolID(query); err == nil {
		if sym, err := s.GetSymbol(ctx, id); err != nil || sym != nil {
			return sym, err
		}
	}
	if path, lineStr, ok := strings.Cut(query, ":"); ok {
		if line, err := strconv.Atoi(lineStr); err == nil {
			f, err := s.GetFileByPath(ctx, path)
			if err != nil || f == nil {
				return nil, err
			}
			syms, err := s.SymbolsInSpan(ctx, f.ID, line, line)
			if err != nil || len(syms) == 0 {
				return nil, err
			}
			return &syms[0], nil
		}
	}
	matches, err := s.FindSymbolsByName(ctx, query)
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	return &matches[0], nil
}

// Zoom generates a single-symbol deep-dive pack: signature, docs, a
// skeletonized body, direct callers/callees, a code slice, and related
// symbols, in §4.11's fixed section order. repoRoot is used to read the
// symbol's source text for the Skeleton/Code Slice sections.
func Zoom(ctx context.Context, s *store.Store, repoRoot string, sym store.Symbol, opts Options) (Pack, error) {
	idxVer, err := indexVersion(ctx, s)
	if err != nil {
		return Pack{}, engineerr.New(engineerr.KindInternal, "pack.zoom", err)
	}
	now := time.Now()

	f, err := s.FileByID(ctx, sym.FileID)
	if err != nil || f == nil {
		return Pack{}, engineerr.New(engineerr.KindSymbolNotFound, "pack.zoom", fmt.Errorf("owning file not found for symbol %d", sym.ID))
	}

	lines, err := readLines(filepath.Join(repoRoot, filepath.FromSlash(f.Path)))
	if err != nil {
		// Source may have moved since indexing; degrade gracefully rather
		// than failing the whole pack (callers/callees are still useful).
		lines = nil
	}

	callers, err := graph.Callers(ctx, s, sym.ID, zoomDefaultDepth, 0)
	if err != nil {
		return Pack{}, err
	}
	callees, err := graph.Callees(ctx, s, sym.ID, zoomDefaultDepth, 0)
	if err != nil {
		return Pack{}, err
	}
	related, err := s.FindSymbolsByFile(ctx, sym.FileID)
	if err != nil {
		return Pack{}, err
	}

	sections := []section{
		{Heading: "Header", Body: fmt.Sprintf("- symbol: %s\n- id: %s\n- file: %s:%d-%d\n- kind: %s\n",
			sym.Name, idcodec.EncodeSymbolID(sym.ID), f.Path, sym.StartLine, sym.EndLine, sym.Kind), Mandatory: true},
		{Heading: "Signature", Body: codeFence(f.Language, sym.Signature)},
		{Heading: "Docs", Body: docsBody(sym.Doc)},
		{Heading: "Skeleton", Body: codeFence(f.Language, Skeletonize(lines, sym.StartLine, sym.EndLine))},
		{Heading: "Callers", Body: hopListBody(callers)},
		{Heading: "Callees", Body: hopListBody(callees)},
		{Heading: "Code Slice", Body: codeFence(f.Language, sliceLines(lines, sym.StartLine, sym.EndLine))},
		{Heading: "Related", Body: relatedBody(related, sym.ID)},
		{Heading: "Metadata", Body: metadataBody(idxVer, now), Mandatory: true},
	}

	budget := budgetFor(ZoomBudget, opts.MaxTokens)
	if opts.Format == FormatJSON {
		return toJSON(TypeZoom, sections, idxVer, now, false)
	}
	return render(TypeZoom, sections, budget, idxVer, now)
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func sliceLines(lines []string, start, end int) string {
	if lines == nil || start < 1 || start > len(lines) {
		return "(source unavailable)"
	}
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start-1:end], "\n")
}

// branchKeywords flags a line as a top-level control structure worth
// keeping verbatim in a Skeleton rather than eliding it (§4.11).
var branchKeywords = []string{"if ", "for ", "switch ", "match ", "while ", "return", "raise", "throw", "panic", "yield"}

// Skeletonize preserves the signature line, doc comments already rendered
// separately, and any line that calls out, returns, raises, or branches;
// runs of other lines collapse into a single elided marker (§4.11).
func Skeletonize(lines []string, start, end int) string {
	if lines == nil || start < 1 || start > len(lines) {
		return "(source unavailable)"
	}
	if end > len(lines) {
		end = len(lines)
	}
	body := lines[start-1 : end]

	var out []string
	elided := 0
	flushElided := func() {
		if elided > 0 {
			out = append(out, fmt.Sprintf("// … %d lines elided", elided))
			elided = 0
		}
	}
	for i, line := range body {
		trimmed := strings.TrimSpace(line)
		if i == 0 || isSignificant(trimmed) {
			flushElided()
			out = append(out, line)
			continue
		}
		elided++
	}
	flushElided()
	return strings.Join(out, "\n")
}

func isSignificant(trimmed string) bool {
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, "}") || strings.HasSuffix(trimmed, "{") {
		return true
	}
	for _, kw := range branchKeywords {
		if strings.HasPrefix(trimmed, kw) || strings.Contains(trimmed, " "+strings.TrimSpace(kw)) {
			return true
		}
	}
	return strings.Contains(trimmed, "(") && strings.Contains(trimmed, ")")
}

func codeFence(lang, body string) string {
	if strings.TrimSpace(body) == "" {
		body = "(empty)"
	}
	return "```" + lang + "\n" + body + "\n```\n"
}

func docsBody(doc string) string {
	if strings.TrimSpace(doc) == "" {
		return "(undocumented)\n"
	}
	return doc + "\n"
}

func hopListBody(hops []graph.Hop) string {
	if len(hops) == 0 {
		return "(none)\n"
	}
	var b strings.Builder
	for _, h := range hops {
		fmt.Fprintf(&b, "- `%s` %s (confidence %.2f)\n", h.Path, h.Symbol.Name, h.Confidence)
	}
	return b.String()
}

func relatedBody(siblings []store.Symbol, exclude int64) string {
	sort.Slice(siblings, func(i, j int) bool { return siblings[i].StartLine < siblings[j].StartLine })
	var b strings.Builder
	for _, sib := range siblings {
		if sib.ID == exclude || sib.Kind == store.KindImport {
			continue
		}
		fmt.Fprintf(&b, "- %s %s (line %d)\n", sib.Kind, sib.Name, sib.StartLine)
	}
	if b.Len() == 0 {
		return "(none)\n"
	}
	return b.String()
}
