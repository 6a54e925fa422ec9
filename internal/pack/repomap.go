package pack

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/standardbeagle/pui/internal/engineerr"
	"github.com/standardbeagle/pui/internal/store"
)

const repoMapMaxSymbolRows = 200

// RepoMap generates the repository-wide orientation pack: a directory
// summary, module dependency edges, a symbol index, and the busiest
// call relationships, in the fixed section order §4.11's table specifies.
func RepoMap(ctx context.Context, s *store.Store, focus string, opts Options) (Pack, error) {
	files, err := s.AllFiles(ctx)
	if err != nil {
		return Pack{}, engineerr.New(engineerr.KindInternal, "pack.repomap", err)
	}

	idxVer, err := indexVersion(ctx, s)
	if err != nil {
		return Pack{}, engineerr.New(engineerr.KindInternal, "pack.repomap", err)
	}
	now := time.Now()

	dirs := directorySummary(files, focus)
	symbolRows, moreSymbols, err := symbolIndex(ctx, s, files, repoMapMaxSymbolRows)
	if err != nil {
		return Pack{}, err
	}
	moduleDeps, err := moduleDependencySummary(ctx, s, dirs)
	if err != nil {
		return Pack{}, err
	}
	hotspots, err := callHotspots(ctx, s, 20)
	if err != nil {
		return Pack{}, err
	}

	sections := []section{
		{Heading: "Repo Map", Body: fmt.Sprintf("- files: %d\n- focus: %s\n", len(files), orDash(focus)), Mandatory: true},
		{Heading: "Summary", Body: summaryBody(files, dirs)},
		{Heading: "Directory", Body: directoryBody(dirs)},
		{Heading: "Module Deps", Body: moduleDeps},
		{Heading: "Symbol Index", Body: symbolRows + moreAvailable(moreSymbols)},
		{Heading: "Key Relationships", Body: hotspots},
		{Heading: "Metadata", Body: metadataBody(idxVer, now), Mandatory: true},
	}

	budget := budgetFor(RepoMapBudget, opts.MaxTokens)
	if opts.Format == FormatJSON {
		return toJSON(TypeRepoMap, sections, idxVer, now, false)
	}
	return render(TypeRepoMap, sections, budget, idxVer, now)
}

type dirEntry struct {
	Name      string
	FileCount int
	Languages map[string]int
}

func directorySummary(files []store.File, focus string) []dirEntry {
	byDir := make(map[string]*dirEntry)
	var order []string
	for _, f := range files {
		if focus != "" && !strings.HasPrefix(f.Path, focus) {
			continue
		}
		dir := "."
		if i := strings.LastIndexByte(f.Path, '/'); i >= 0 {
			dir = f.Path[:i]
		}
		e, ok := byDir[dir]
		if !ok {
			e = &dirEntry{Name: dir, Languages: make(map[string]int)}
			byDir[dir] = e
			order = append(order, dir)
		}
		e.FileCount++
		e.Languages[f.Language]++
	}
	sort.Strings(order)
	out := make([]dirEntry, 0, len(order))
	for _, name := range order {
		out = append(out, *byDir[name])
	}
	return out
}

func summaryBody(files []store.File, dirs []dirEntry) string {
	langs := make(map[string]int)
	for _, f := range files {
		langs[f.Language]++
	}
	names := make([]string, 0, len(langs))
	for l := range langs {
		names = append(names, l)
	}
	sort.Strings(names)
	var b strings.Builder
	fmt.Fprintf(&b, "%d directories, %d files\n", len(dirs), len(files))
	for _, l := range names {
		fmt.Fprintf(&b, "- %s: %d files\n", l, langs[l])
	}
	return b.String()
}

func directoryBody(dirs []dirEntry) string {
	var b strings.Builder
	for _, d := range dirs {
		fmt.Fprintf(&b, "- `%s/` (%d files)\n", d.Name, d.FileCount)
	}
	if b.Len() == 0 {
		return "(empty)\n"
	}
	return b.String()
}

// moduleDependencySummary lists MODULE_DEPENDS_ON edges between the
// top-level module directories discovered in dirs.
func moduleDependencySummary(ctx context.Context, s *store.Store, dirs []dirEntry) (string, error) {
	seen := make(map[string]bool)
	var b strings.Builder
	for _, d := range dirs {
		mod := topLevel(d.Name)
		if mod == "" || seen[mod] {
			continue
		}
		seen[mod] = true
		edges, err := s.ModuleDependencyEdges(ctx, mod, "out")
		if err != nil {
			return "", engineerr.New(engineerr.KindInternal, "pack.repomap.moduledeps", err)
		}
		for _, e := range edges {
			srcSym, err := s.GetSymbol(ctx, e.SourceID)
			if err != nil || srcSym == nil {
				continue
			}
			tgtSym, err := s.GetSymbol(ctx, e.TargetID)
			if err != nil || tgtSym == nil {
				continue
			}
			fmt.Fprintf(&b, "- %s -> %s (confidence %.2f)\n", srcSym.Name, tgtSym.Name, e.Confidence)
		}
	}
	if b.Len() == 0 {
		return "(no cross-module dependencies resolved)\n", nil
	}
	return b.String(), nil
}

func topLevel(dir string) string {
	if dir == "." {
		return ""
	}
	if i := strings.IndexByte(dir, '/'); i >= 0 {
		return dir[:i]
	}
	return dir
}

// symbolIndex lists up to maxRows symbol definitions, grouped by file and
// ordered by (path, start line) for determinism. Rows beyond maxRows are
// counted, not rendered — tokenest's own truncation reserves the row-level
// marker wording, but pack generators pre-cap large indexes themselves so
// Zoom remains the authoritative place to read a specific symbol in full.
func symbolIndex(ctx context.Context, s *store.Store, files []store.File, maxRows int) (string, int, error) {
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	var b strings.Builder
	rows := 0
	more := 0
	for _, f := range files {
		syms, err := s.FindSymbolsByFile(ctx, f.ID)
		if err != nil {
			return "", 0, engineerr.New(engineerr.KindInternal, "pack.repomap.symbols", err)
		}
		for _, sym := range syms {
			if sym.Kind == store.KindImport {
				continue
			}
			if rows >= maxRows {
				more++
				continue
			}
			fmt.Fprintf(&b, "- `%s:%d` %s %s\n", f.Path, sym.StartLine, sym.Kind, sym.Name)
			rows++
		}
	}
	return b.String(), more, nil
}

// callHotspots ranks symbols by local CALL fan-in within the index,
// surfacing the busiest relationships for quick orientation.
func callHotspots(ctx context.Context, s *store.Store, limit int) (string, error) {
	rows, err := s.DB().QueryContext(ctx, `
		SELECT target.id, target.name, COUNT(*) AS fan_in
		FROM edges
		JOIN symbols AS target ON target.id = edges.target_id
		WHERE edges.kind = 'CALL'
		GROUP BY target.id
		ORDER BY fan_in DESC, target.id ASC
		LIMIT ?`, limit)
	if err != nil {
		return "", engineerr.New(engineerr.KindInternal, "pack.repomap.hotspots", err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var id int64
		var name string
		var fanIn int
		if err := rows.Scan(&id, &name, &fanIn); err != nil {
			return "", engineerr.New(engineerr.KindInternal, "pack.repomap.hotspots", err)
		}
		fmt.Fprintf(&b, "- %s — %d caller(s)\n", name, fanIn)
	}
	if err := rows.Err(); err != nil {
		return "", engineerr.New(engineerr.KindInternal, "pack.repomap.hotspots", err)
	}
	if b.Len() == 0 {
		return "(no call edges resolved)\n", nil
	}
	return b.String(), nil
}

func orDash(s string) string {
	if s == "" {
		return "(whole repo)"
	}
	return s
}
