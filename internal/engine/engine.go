// Package engine wires the Store, Indexer, Resolver, Parser, Discoverer,
// Config, Metrics and Manifest scanners together behind one facade that
// both the CLI (cmd/pui) and the MCP server (internal/mcpserver) call
// into, so neither surface duplicates the other's wiring.
//
// Grounded on standardbeagle-lci's internal/indexing/master_index.go and
// cmd/lci/main.go, which play the same "one struct both the CLI and the
// MCP server drive" role there (MasterIndex is constructed once in
// main.go and handed to both the interactive commands and internal/mcp's
// server.go); this package is the generalized, SPEC_FULL-scoped
// replacement for that gluing, rather than a rewrite of either file.
package engine

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/standardbeagle/pui/internal/config"
	"github.com/standardbeagle/pui/internal/diagnostics"
	"github.com/standardbeagle/pui/internal/discover"
	"github.com/standardbeagle/pui/internal/engineerr"
	"github.com/standardbeagle/pui/internal/gitdiff"
	"github.com/standardbeagle/pui/internal/ignore"
	"github.com/standardbeagle/pui/internal/impact"
	"github.com/standardbeagle/pui/internal/indexer"
	"github.com/standardbeagle/pui/internal/manifest"
	"github.com/standardbeagle/pui/internal/metrics"
	"github.com/standardbeagle/pui/internal/pack"
	"github.com/standardbeagle/pui/internal/parser"
	"github.com/standardbeagle/pui/internal/resolve"
	"github.com/standardbeagle/pui/internal/store"
)

// StateDirName is the repo-local directory holding the SQLite file, the
// writer lock and the parse-error journal (§4.6/§6).
const StateDirName = ".pui"

// Engine is the single owner of a repo's index for the lifetime of one
// CLI invocation or one MCP server process.
type Engine struct {
	RepoRoot string
	Config   *config.Config
	Store    *store.Store
	Metrics  *metrics.Metrics
	Logger   *diagnostics.Logger

	parser     *parser.Facade
	discoverer *discover.Discoverer
	resolver   *resolve.Resolver
}

// Open loads the repo's config, opens its Store and builds the Parser,
// Discoverer and Resolver over it. w receives human-readable log lines
// (pass nil to suppress, as MCP mode does).
func Open(ctx context.Context, repoRoot string, w io.Writer) (*Engine, error) {
	cfg, err := config.Load(repoRoot)
	if err != nil {
		return nil, err
	}
	if err := config.NewValidator().ValidateAndSetDefaults(cfg); err != nil {
		return nil, err
	}

	stateDir := filepath.Join(repoRoot, StateDirName)
	logger, err := diagnostics.New(w, stateDir)
	if err != nil {
		return nil, engineerr.New(engineerr.KindInternal, "engine.open.logger", err)
	}

	s, err := store.Open(ctx, stateDir)
	if err != nil {
		logger.Close()
		return nil, err
	}

	resolver := ignore.New(cfg.Index.ExcludeDirs, nil)
	if err := resolver.LoadIgnoreFile(repoRoot); err != nil {
		s.Close()
		logger.Close()
		return nil, engineerr.New(engineerr.KindInternal, "engine.open.ignore", err)
	}

	disc := discover.New(repoRoot, resolver)
	disc.MaxFileSize = cfg.Index.MaxFileSize
	for ext, lang := range cfg.Parsing.LanguageOverrides {
		disc.LanguageByExt[ext] = lang
	}
	p := parser.New()
	r := resolve.New(s, nil)
	m := metrics.New()
	r.OnEdgeConfidence = m.ResolverConfidence.Observe

	return &Engine{
		RepoRoot:   repoRoot,
		Config:     cfg,
		Store:      s,
		Metrics:    m,
		Logger:     logger,
		parser:     p,
		discoverer: disc,
		resolver:   r,
	}, nil
}

// Close releases the Store's writer lock and flushes the logger.
func (e *Engine) Close() error {
	storeErr := e.Store.Close()
	logErr := e.Logger.Close()
	if storeErr != nil {
		return storeErr
	}
	return logErr
}

// Index runs one Indexer pass (§4.8) and, alongside it, rescans
// dependency lockfiles (§3.1) so repomap's module-dependency section and
// future supply-chain tooling both see fresh Dependency rows.
func (e *Engine) Index(ctx context.Context, mode indexer.Mode) (indexer.Stats, error) {
	idx := indexer.New(e.Store, e.parser, e.discoverer, e.resolver, e.Logger)
	idx.Workers = e.Config.Index.Workers
	idx.Mode = mode
	idx.OnParseFailure = func(language string) {
		e.Metrics.ParseFailures.WithLabelValues(language).Inc()
	}

	stats, err := idx.Run(ctx)
	if err != nil {
		return stats, err
	}

	e.Metrics.FilesIndexed.Add(float64(stats.FilesIndexed))
	if err := e.scanDependencies(ctx); err != nil {
		e.Logger.Warnf("dependency scan: %v", err)
	}
	return stats, nil
}

func (e *Engine) scanDependencies(ctx context.Context) error {
	deps, err := manifest.ScanDirectory(e.RepoRoot, manifest.AllScanners())
	if err != nil {
		return err
	}
	byLockfile := make(map[string][]store.Dependency)
	for _, d := range deps {
		byLockfile[d.Lockfile] = append(byLockfile[d.Lockfile], store.Dependency{
			Name:      d.Name,
			Version:   d.Version,
			Ecosystem: d.Ecosystem,
			Lockfile:  d.Lockfile,
			IsDev:     d.IsDev,
		})
	}
	for lockfile, rows := range byLockfile {
		if err := e.Store.ReplaceDependencies(ctx, lockfile, rows); err != nil {
			return err
		}
	}
	return nil
}

// RepoMap generates the repo-level orientation pack (§4.11).
func (e *Engine) RepoMap(ctx context.Context, focus string, opts pack.Options) (pack.Pack, error) {
	return e.timedPack(pack.TypeRepoMap, func() (pack.Pack, error) {
		return pack.RepoMap(ctx, e.Store, focus, opts)
	})
}

// Zoom resolves query (a symbol ID, "path:line", or a name) and generates
// its symbol-detail pack (§4.11).
func (e *Engine) Zoom(ctx context.Context, query string, opts pack.Options) (pack.Pack, error) {
	sym, err := pack.ResolveSymbol(ctx, e.Store, query)
	if err != nil {
		return pack.Pack{}, err
	}
	return e.timedPack(pack.TypeZoom, func() (pack.Pack, error) {
		return pack.Zoom(ctx, e.Store, e.RepoRoot, *sym, opts)
	})
}

// Find runs a full-text symbol search (§4.6's FTS5 index).
func (e *Engine) Find(ctx context.Context, query string, limit int) ([]store.SearchResult, error) {
	return e.Store.SearchSymbolsFTS(ctx, query, limit)
}

// GraphQuery is the parameter set for the graph command (§4.9/§6).
type GraphQuery struct {
	SymbolQuery   string
	Kind          store.EdgeKind // defaults to CALL when empty
	Direction     string         // "in", "out", or "both" (§6); "" defaults to "out"
	MaxDepth      int
	MinConfidence float64
}

// Graph resolves the query symbol and traverses its call graph (C9).
func (e *Engine) Graph(ctx context.Context, q GraphQuery) (*store.Symbol, []graphHop, error) {
	sym, err := pack.ResolveSymbol(ctx, e.Store, q.SymbolQuery)
	if err != nil {
		return nil, nil, err
	}
	hops, err := e.traverse(ctx, sym.ID, q)
	if err != nil {
		return nil, nil, err
	}
	return sym, hops, nil
}

// Impact analyzes the blast radius of either an explicit path set or a
// git diff range (§4.10, C10).
func (e *Engine) Impact(ctx context.Context, paths []string, revRange string, maxDownstreamDepth int) (impact.Result, error) {
	var changed []store.Symbol
	var err error
	switch {
	case revRange != "":
		var hunks []gitdiff.Hunk
		if revRange == "working-tree" {
			hunks, err = gitdiff.WorkingTree(ctx, e.RepoRoot)
		} else {
			hunks, err = gitdiff.Range(ctx, e.RepoRoot, revRange)
		}
		if err != nil {
			return impact.Result{}, err
		}
		changed, err = impact.SymbolsFromHunks(ctx, e.Store, hunks)
	default:
		changed, err = impact.SymbolsFromPaths(ctx, e.Store, paths)
	}
	if err != nil {
		return impact.Result{}, err
	}
	return impact.Analyze(ctx, e.Store, changed, maxDownstreamDepth)
}

// ImpactPack renders an Impact Result as a token-budgeted pack (§4.11).
func (e *Engine) ImpactPack(ctx context.Context, res impact.Result, opts pack.Options) (pack.Pack, error) {
	return e.timedPack(pack.TypeImpact, func() (pack.Pack, error) {
		return pack.Impact(ctx, e.Store, res, opts)
	})
}

func (e *Engine) timedPack(typ pack.Type, fn func() (pack.Pack, error)) (pack.Pack, error) {
	start := time.Now()
	p, err := fn()
	if e.Metrics != nil {
		e.Metrics.ObservePackDuration(string(typ), time.Since(start))
	}
	return p, err
}

// ServeMetrics starts the Prometheus HTTP endpoint if addr is non-empty,
// blocking until ctx is cancelled. Callers that don't want metrics served
// should not call this at all.
func (e *Engine) ServeMetrics(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	return e.Metrics.Serve(ctx, addr)
}

// StateDir returns the repo's .pui directory, creating nothing.
func (e *Engine) StateDir() string {
	return filepath.Join(e.RepoRoot, StateDirName)
}
