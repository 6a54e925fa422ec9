// Package indexer implements the Indexer (C8): one pass over a repo that
// discovers files, skips unchanged ones, parses/extracts/persists the
// rest, sweeps deleted files, and runs the Resolver over whatever
// changed.
//
// Grounded on standardbeagle-lci's internal/indexing/master_index.go
// (IndexDirectory's discover → scan → process → integrate shape,
// incremental skip-by-hash in validateFileForIndexing/UpdateFile) and
// pipeline.go (per-file language classification, error-tolerant walk).
// Concurrency is reshaped from the teacher's three-stage channel
// pipeline (scanner/processor/integrator goroutines) onto
// golang.org/x/sync/errgroup, since persistence here goes through a
// single serialized Store writer rather than a dedicated merge stage.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/pui/internal/diagnostics"
	"github.com/standardbeagle/pui/internal/discover"
	"github.com/standardbeagle/pui/internal/engineerr"
	"github.com/standardbeagle/pui/internal/extract"
	"github.com/standardbeagle/pui/internal/parser"
	"github.com/standardbeagle/pui/internal/resolve"
	"github.com/standardbeagle/pui/internal/store"
)

// Mode selects how aggressively a pass re-examines already-indexed files
// (§4.8).
type Mode string

const (
	ModeFull        Mode = "full"        // ignore stored hashes, re-parse everything
	ModeIncremental Mode = "incremental" // default: skip files whose hash hasn't changed
	ModeStatsOnly   Mode = "stats-only"  // count what would change, write nothing
)

// prefixCheckSize is the size of the leading slice hashed as a cheap
// negative filter before computing the authoritative SHA-256 (§4.8 step 2).
const prefixCheckSize = 4096

// Stats summarizes one Run.
type Stats struct {
	FilesScanned int
	FilesIndexed int
	FilesSkipped int
	FilesDeleted int
	FilesFailed  int
	Duration     time.Duration
}

// Indexer wires the Discoverer, Parser, Extractor, Store and Resolver
// into one orchestrated pass.
type Indexer struct {
	Store      *store.Store
	Parser     *parser.Facade
	Discoverer *discover.Discoverer
	Resolver   *resolve.Resolver
	Logger     *diagnostics.Logger
	Workers    int
	Mode       Mode

	// OnParseFailure, if set, is called with a file's language each time
	// processFile fails it out — the Engine wires this to the
	// pui_index_parse_failures_total counter (§4.13).
	OnParseFailure func(language string)
}

// New builds an Indexer in incremental mode with runtime.NumCPU() workers;
// callers may override Workers/Mode before calling Run.
func New(s *store.Store, p *parser.Facade, d *discover.Discoverer, r *resolve.Resolver, logger *diagnostics.Logger) *Indexer {
	return &Indexer{
		Store:      s,
		Parser:     p,
		Discoverer: d,
		Resolver:   r,
		Logger:     logger,
		Workers:    runtime.NumCPU(),
		Mode:       ModeIncremental,
	}
}

// Run executes one full pass over the Discoverer's root per §4.8's six
// steps. A per-file parse/persist failure is logged and counted, never
// aborts the pass (failure semantics: a file that fails leaves its prior
// rows untouched).
func (idx *Indexer) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	var stats Stats

	discovered := make(map[string]discover.File)
	var order []discover.File
	if err := idx.Discoverer.Walk(ctx, func(f discover.File) error {
		discovered[f.RelPath] = f
		order = append(order, f)
		stats.FilesScanned++
		return nil
	}); err != nil {
		return stats, engineerr.New(engineerr.KindInternal, "indexer.walk", err)
	}

	existing, err := idx.Store.AllFiles(ctx)
	if err != nil {
		return stats, engineerr.New(engineerr.KindStoreCorrupt, "indexer.all_files", err)
	}
	existingByPath := make(map[string]store.File, len(existing))
	for _, f := range existing {
		existingByPath[f.Path] = f
	}

	for path := range existingByPath {
		if _, ok := discovered[path]; ok {
			continue
		}
		if idx.Mode != ModeStatsOnly {
			if err := idx.Store.DeleteFile(ctx, path); err != nil {
				return stats, engineerr.New(engineerr.KindStoreCorrupt, "indexer.delete_file", err).WithPath(path)
			}
		}
		stats.FilesDeleted++
	}

	workers := idx.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	sem := make(chan struct{}, workers)

	var mu sync.Mutex
	var changedFileIDs []int64

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range order {
		f := f
		prior, hadPrior := existingByPath[f.RelPath]

		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			if gctx.Err() != nil {
				return gctx.Err()
			}

			fileID, changed, failed := idx.processFile(gctx, f, prior, hadPrior)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case failed:
				stats.FilesFailed++
			case changed:
				stats.FilesIndexed++
				if fileID != 0 {
					changedFileIDs = append(changedFileIDs, fileID)
				}
			default:
				stats.FilesSkipped++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	if idx.Mode != ModeStatsOnly && idx.Resolver != nil && len(changedFileIDs) > 0 {
		for _, fileID := range changedFileIDs {
			if err := idx.Resolver.ResolveFile(ctx, fileID); err != nil {
				return stats, engineerr.New(engineerr.KindInternal, "indexer.resolve_file", err)
			}
		}
		if err := idx.Resolver.ResolveModuleDependencies(ctx); err != nil {
			return stats, engineerr.New(engineerr.KindInternal, "indexer.resolve_modules", err)
		}
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// processFile runs one file through the hash-skip check and, if changed,
// parse → extract → persist. Returns the (possibly zero) file id, whether
// it was actually reindexed, and whether it failed outright.
func (idx *Indexer) processFile(ctx context.Context, f discover.File, prior store.File, hadPrior bool) (fileID int64, changed bool, failed bool) {
	content, err := os.ReadFile(f.AbsPath)
	if err != nil {
		idx.logFailure(f, err)
		return 0, false, true
	}

	prefixHash := prefixDigest(content)
	if idx.Mode == ModeIncremental && hadPrior && prior.PrefixHash == prefixHash {
		idx.touch(ctx, prior.ID)
		return 0, false, false
	}

	contentHash := sha256Hex(content)
	if idx.Mode == ModeIncremental && hadPrior && prior.ContentHash == contentHash {
		idx.touch(ctx, prior.ID)
		return 0, false, false
	}

	if !idx.Parser.Supports(f.Language) {
		return 0, false, false
	}

	if idx.Mode == ModeStatsOnly {
		return 0, true, false // would change; stats-only never writes or gets a real id
	}

	tree, err := idx.Parser.Parse(f.Language, content)
	if err != nil {
		idx.logFailure(f, err)
		return 0, false, true
	}
	defer tree.Close()

	result := extract.Extract(f.RelPath, f.Language, tree)

	repl := store.FileReplacement{
		File: store.File{
			Path:        f.RelPath,
			Language:    f.Language,
			ContentHash: contentHash,
			PrefixHash:  prefixHash,
			Size:        f.Size,
			ModifiedAt:  time.Unix(f.ModTime, 0),
		},
		Symbols:   result.Symbols,
		Callsites: result.Callsites,
		Edges:     result.Edges,
	}

	id, err := idx.Store.ReplaceFile(ctx, repl)
	if err != nil {
		idx.logFailure(f, err)
		return 0, false, true
	}
	return id, true, false
}

func (idx *Indexer) touch(ctx context.Context, fileID int64) {
	if idx.Mode == ModeStatsOnly {
		return
	}
	_ = idx.Store.TouchIndexedAt(ctx, fileID)
}

func (idx *Indexer) logFailure(f discover.File, err error) {
	if idx.Logger != nil {
		idx.Logger.ParseFailure(f.RelPath, f.Language, err, true)
	}
	if idx.OnParseFailure != nil {
		idx.OnParseFailure(f.Language)
	}
}

// prefixDigest hashes the first prefixCheckSize bytes of content with
// xxhash64: a fast, non-cryptographic pre-check that lets an unmodified
// large file skip the SHA-256 pass entirely.
func prefixDigest(content []byte) string {
	n := len(content)
	if n > prefixCheckSize {
		n = prefixCheckSize
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(content[:n]))
}

// sha256Hex is the authoritative content hash stored in File.ContentHash.
func sha256Hex(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
