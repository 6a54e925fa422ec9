// Package config implements the Config Loader and Validator: KDL-backed
// settings for the Indexer, Parser, ignore rules, and pack output budgets
// (§6's config key table).
//
// Grounded on standardbeagle-lci's internal/config/config.go (nested
// section struct shape) and internal/config/kdl_config.go (KDL parsing via
// github.com/sblinch/kdl-go), adapted from lci's much larger project/search
// config surface down to the keys SPEC_FULL §6 actually names.
package config

import "runtime"

// ConfigFileName is the repo-local KDL settings file, read from the repo
// root by Load.
const ConfigFileName = ".pui.kdl"

// Index holds index.* keys.
type Index struct {
	ExcludeDirs []string
	MaxFileSize int64
	Workers     int
	BatchSize   int
}

// Parsing holds parsing.* keys.
type Parsing struct {
	Languages         []string
	LanguageOverrides map[string]string // extension -> language, overrides the Discoverer's built-in table
	TimeoutMs         int
}

// Output holds output.* keys.
type Output struct {
	MaxTokens int
	Format    string // "markdown" | "json"
}

// MCP holds mcp.* keys.
type MCP struct {
	MetricsAddr string // empty disables the /metrics endpoint
}

// Config is the full settings surface §6 names, with defaults matching
// the Indexer/Discoverer/pack package's own zero-value behavior so a repo
// with no .pui.kdl file still indexes correctly.
type Config struct {
	Index   Index
	Parsing Parsing
	Output  Output
	MCP     MCP
}

// Default returns a Config with every documented default applied: the
// per-file soft parse timeout (§5, 5000ms), the Indexer's worker count
// (runtime.NumCPU()), and the RepoMap pack's default token budget.
func Default() *Config {
	return &Config{
		Index: Index{
			ExcludeDirs: nil,
			MaxFileSize: 2 * 1024 * 1024,
			Workers:     runtime.NumCPU(),
			BatchSize:   1,
		},
		Parsing: Parsing{
			Languages:         []string{"go", "python", "javascript", "typescript", "rust", "cpp"},
			LanguageOverrides: map[string]string{},
			TimeoutMs:         5000,
		},
		Output: Output{
			MaxTokens: 8000,
			Format:    "markdown",
		},
		MCP: MCP{
			MetricsAddr: "",
		},
	}
}
