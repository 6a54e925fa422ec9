// Package discover implements the File Discoverer (C3): a repo walk that
// classifies files by language, normalizes paths, and guards against
// symlink loops and oversized files.
//
// Grounded on standardbeagle-lci's internal/indexing/pipeline_scanner.go
// (shouldProcessFile filtering order: binary-by-extension, ignore check,
// size limit, binary pre-check by magic number) and internal/parser/parser.go
// (extension-to-language table).
package discover

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/text/unicode/norm"

	"github.com/standardbeagle/pui/internal/engineerr"
	"github.com/standardbeagle/pui/internal/ignore"
)

// DefaultMaxFileSize is index.max_file_size's default (§4.3): 2 MiB.
const DefaultMaxFileSize = 2 * 1024 * 1024

// File describes one discovered, to-be-indexed file.
type File struct {
	AbsPath  string
	RelPath  string // repo-root-relative, forward-slash, NFC
	Language string
	Size     int64
	ModTime  int64 // unix seconds, avoids importing time here for a single field
}

// defaultLanguageByExt mirrors the teacher parser's extension table (§4.4's
// required initial language set plus file-level-only C/C++).
var defaultLanguageByExt = map[string]string{
	".go":  "go",
	".py":  "python",
	".js":  "javascript",
	".jsx": "javascript",
	".ts":  "typescript",
	".tsx": "typescript",
	".rs":  "rust",
	".c":   "cpp",
	".h":   "cpp",
	".cc":  "cpp",
	".cpp": "cpp",
	".cxx": "cpp",
	".hpp": "cpp",
}

// Discoverer walks a repo root applying an ignore.Resolver and a
// (possibly user-overridden) extension-to-language map.
type Discoverer struct {
	Root            string
	Ignore          *ignore.Resolver
	MaxFileSize     int64
	LanguageByExt   map[string]string
}

// New builds a Discoverer with the default language table and size limit;
// callers may override LanguageByExt/MaxFileSize before calling Walk.
func New(root string, resolver *ignore.Resolver) *Discoverer {
	langs := make(map[string]string, len(defaultLanguageByExt))
	for k, v := range defaultLanguageByExt {
		langs[k] = v
	}
	return &Discoverer{
		Root:          root,
		Ignore:        resolver,
		MaxFileSize:   DefaultMaxFileSize,
		LanguageByExt: langs,
	}
}

// Walk traverses Root depth-first, yielding one File per eligible regular
// file via visit. Symlinks are followed but loop-guarded by a set of
// resolved real directory paths; a symlink that revisits an already-seen
// directory is skipped rather than erroring, per §4.3.
func (d *Discoverer) Walk(ctx context.Context, visit func(File) error) error {
	visited := make(map[string]bool)
	return d.walkDir(ctx, d.Root, visited, visit)
}

func (d *Discoverer) walkDir(ctx context.Context, dir string, visited map[string]bool, visit func(File) error) error {
	if err := ctx.Err(); err != nil {
		return engineerr.New(engineerr.KindCancelled, "discover.walk", err)
	}

	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		real = dir
	}
	if visited[real] {
		return nil
	}
	visited[real] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil // unreadable directory: skip rather than fail the whole walk
	}

	for _, entry := range entries {
		absPath := filepath.Join(dir, entry.Name())
		relPath, relErr := filepath.Rel(d.Root, absPath)
		if relErr != nil {
			continue
		}
		relPath = toSlashNFC(relPath)

		if entry.IsDir() {
			if d.Ignore.Excluded(relPath + "/") {
				continue
			}
			if err := d.walkDir(ctx, absPath, visited, visit); err != nil {
				return err
			}
			continue
		}

		if d.Ignore.Excluded(relPath) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(absPath)
			if err != nil {
				continue
			}
			if visited[target] {
				continue
			}
			info, err = os.Stat(target)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if d.Ignore.Excluded(relPath + "/") {
					continue
				}
				if err := d.walkDir(ctx, absPath, visited, visit); err != nil {
					return err
				}
				continue
			}
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if info.Size() > d.MaxFileSize {
			continue
		}

		lang := d.classify(relPath)
		if err := visit(File{
			AbsPath:  absPath,
			RelPath:  relPath,
			Language: lang,
			Size:     info.Size(),
			ModTime:  info.ModTime().Unix(),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (d *Discoverer) classify(relPath string) string {
	ext := filepath.Ext(relPath)
	if lang, ok := d.LanguageByExt[ext]; ok {
		return lang
	}
	return "unknown"
}

// toSlashNFC normalizes a path to forward slashes and Unicode NFC form,
// the canonical on-disk representation for stored File.Path values (§3).
func toSlashNFC(p string) string {
	return norm.NFC.String(filepath.ToSlash(p))
}
