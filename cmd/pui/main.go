// Command pui is a thin CLI over internal/engine implementing §6's
// command surface: index, repomap, find, zoom, graph, impact, and
// serve --mcp.
//
// Grounded on standardbeagle-lci's cmd/lci/main.go (cli.App/Command
// structure, loadConfigWithOverrides flag-override pattern) and
// main_server.go (serve-command signal handling), generalized from
// lci's large bespoke command catalogue down to the six operations
// SPEC_FULL names, all routed through internal/engine rather than a
// package-global indexer pointer.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/pui/internal/engine"
	"github.com/standardbeagle/pui/internal/engineerr"
	"github.com/standardbeagle/pui/internal/indexer"
	"github.com/standardbeagle/pui/internal/mcpserver"
	"github.com/standardbeagle/pui/internal/pack"
	"github.com/standardbeagle/pui/internal/version"
)

func main() {
	app := &cli.App{
		Name:    "pui",
		Usage:   "token-budgeted code intelligence index for LLM coding agents",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Aliases: []string{"C"}, Usage: "repository root", Value: "."},
		},
		Commands: []*cli.Command{
			indexCommand,
			repoMapCommand,
			findCommand,
			zoomCommand,
			graphCommand,
			impactCommand,
			serveCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		color.Red("pui: %v", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an engineerr.Error to §6's exit codes, defaulting to
// 2 (usage error) for anything this CLI itself rejected before the
// Engine ever got a chance to classify it.
func exitCodeFor(err error) int {
	var ee *engineerr.Error
	if errors.As(err, &ee) {
		return ee.Kind.ExitCode()
	}
	return 2
}

func openEngine(c *cli.Context) (*engine.Engine, error) {
	root := c.String("root")
	absRoot, err := rootAbs(root)
	if err != nil {
		return nil, err
	}
	return engine.Open(c.Context, absRoot, os.Stderr)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var indexCommand = &cli.Command{
	Name:  "index",
	Usage: "run the indexer over the repository",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "force", Usage: "re-parse every file, ignoring stored hashes"},
		&cli.BoolFlag{Name: "stats", Usage: "report what would change without writing"},
	},
	Action: func(c *cli.Context) error {
		e, err := openEngine(c)
		if err != nil {
			return err
		}
		defer e.Close()

		mode := indexer.ModeIncremental
		switch {
		case c.Bool("stats"):
			mode = indexer.ModeStatsOnly
		case c.Bool("force"):
			mode = indexer.ModeFull
		}

		ctx, cancel := signalContext()
		defer cancel()

		bar := progressbar.Default(-1, "indexing")
		done := make(chan struct{})
		defer close(done)
		go func() {
			for {
				select {
				case <-done:
					return
				default:
					_ = bar.Add(1)
				}
			}
		}()

		stats, err := e.Index(ctx, mode)
		_ = bar.Finish()
		if err != nil {
			return err
		}

		color.Green("indexed %d files (scanned %d, skipped %d, deleted %d, failed %d) in %s",
			stats.FilesIndexed, stats.FilesScanned, stats.FilesSkipped, stats.FilesDeleted, stats.FilesFailed, stats.Duration)
		return nil
	},
}

var repoMapCommand = &cli.Command{
	Name:  "repomap",
	Usage: "generate a repository orientation map",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "focus", Usage: "directory or path to bias the map toward"},
		&cli.IntFlag{Name: "max-tokens", Usage: "token budget"},
		&cli.StringFlag{Name: "format", Usage: "markdown|json", Value: "markdown"},
		&cli.IntFlag{Name: "depth", Usage: "reserved for future directory-depth limiting (currently unused)"},
	},
	Action: func(c *cli.Context) error {
		e, err := openEngine(c)
		if err != nil {
			return err
		}
		defer e.Close()

		p, err := e.RepoMap(c.Context, c.String("focus"), packOptions(c))
		if err != nil {
			return err
		}
		fmt.Println(p.Content)
		return nil
	},
}

var findCommand = &cli.Command{
	Name:      "find",
	Usage:     "full-text search over indexed symbols",
	ArgsUsage: "<query>",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "limit", Value: 20},
	},
	Action: func(c *cli.Context) error {
		query := c.Args().First()
		if query == "" {
			return cli.Exit("find requires a query argument", 2)
		}

		e, err := openEngine(c)
		if err != nil {
			return err
		}
		defer e.Close()

		results, err := e.Find(c.Context, query, c.Int("limit"))
		if err != nil {
			return err
		}
		return printJSON(results)
	},
}

var zoomCommand = &cli.Command{
	Name:      "zoom",
	Usage:     "render one symbol's detail pack",
	ArgsUsage: "<symbol-id|name|path:line>",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "max-tokens", Usage: "token budget"},
		&cli.StringFlag{Name: "format", Usage: "markdown|json", Value: "markdown"},
	},
	Action: func(c *cli.Context) error {
		query := c.Args().First()
		if query == "" {
			return cli.Exit("zoom requires a symbol argument", 2)
		}

		e, err := openEngine(c)
		if err != nil {
			return err
		}
		defer e.Close()

		p, err := e.Zoom(c.Context, query, packOptions(c))
		if err != nil {
			return err
		}
		fmt.Println(p.Content)
		return nil
	},
}

var graphCommand = &cli.Command{
	Name:  "graph",
	Usage: "traverse the call graph from a symbol",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "symbol", Required: true},
		&cli.IntFlag{Name: "depth", Value: 1},
		&cli.StringFlag{Name: "direction", Value: "out", Usage: "in|out|both"},
		&cli.StringFlag{Name: "format", Value: "json", Usage: "mermaid|dot|json"},
		&cli.Float64Flag{Name: "min-confidence"},
	},
	Action: func(c *cli.Context) error {
		e, err := openEngine(c)
		if err != nil {
			return err
		}
		defer e.Close()

		sym, hops, err := e.Graph(c.Context, engine.GraphQuery{
			SymbolQuery:   c.String("symbol"),
			Direction:     c.String("direction"),
			MaxDepth:      c.Int("depth"),
			MinConfidence: c.Float64("min-confidence"),
		})
		if err != nil {
			return err
		}

		switch c.String("format") {
		case "mermaid":
			fmt.Println(renderMermaid(*sym, hops))
		case "dot":
			fmt.Println(renderDot(*sym, hops))
		default:
			return printJSON(map[string]any{"root": sym, "hops": hops})
		}
		return nil
	},
}

var impactCommand = &cli.Command{
	Name:  "impact",
	Usage: "analyze the blast radius of a change",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{Name: "files", Usage: "changed file paths"},
		&cli.StringFlag{Name: "git-diff", Usage: "a git revision range, or \"working-tree\""},
		&cli.BoolFlag{Name: "include-tests", Usage: "reserved: tests are always included in the pack's Tests section"},
		&cli.IntFlag{Name: "max-tokens", Usage: "token budget"},
		&cli.IntFlag{Name: "max-depth", Value: 3, Usage: "downstream traversal depth"},
	},
	Action: func(c *cli.Context) error {
		files := c.StringSlice("files")
		gitDiff := c.String("git-diff")
		if len(files) == 0 && gitDiff == "" {
			return cli.Exit("impact requires --files or --git-diff", 2)
		}

		e, err := openEngine(c)
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := e.Impact(c.Context, files, gitDiff, c.Int("max-depth"))
		if err != nil {
			return err
		}

		p, err := e.ImpactPack(c.Context, res, packOptions(c))
		if err != nil {
			return err
		}
		fmt.Println(p.Content)
		return nil
	},
}

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "run pui as a long-lived server",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "mcp", Usage: "serve the MCP protocol over stdio"},
		&cli.StringFlag{Name: "metrics-addr", Usage: "optional /metrics bind address"},
	},
	Action: func(c *cli.Context) error {
		if !c.Bool("mcp") {
			return cli.Exit("serve currently only supports --mcp", 2)
		}

		e, err := engine.Open(c.Context, mustRootAbs(c), nil) // stdio is the MCP transport; no human log lines
		if err != nil {
			return err
		}
		defer e.Close()

		ctx, cancel := signalContext()
		defer cancel()

		addr := c.String("metrics-addr")
		if addr == "" {
			addr = e.Config.MCP.MetricsAddr
		}
		if addr != "" {
			go func() {
				if err := e.ServeMetrics(ctx, addr); err != nil {
					fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
				}
			}()
		}

		return mcpserver.New(e).Run(ctx)
	},
}

func packOptions(c *cli.Context) pack.Options {
	opts := pack.Options{MaxTokens: c.Int("max-tokens")}
	if c.String("format") == string(pack.FormatJSON) {
		opts.Format = pack.FormatJSON
	}
	return opts
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
