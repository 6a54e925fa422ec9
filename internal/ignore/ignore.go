// Package ignore implements the Ignore Resolver (C2): a precedence chain
// of exclude/include globs deciding which discovered paths are indexed.
//
// Grounded on standardbeagle-lci's internal/config/gitignore.go (pattern
// precedence, directory-pattern semantics) and internal/indexing/watcher.go
// (doublestar.Match usage), generalized to use doublestar's gitignore-style
// globbing directly instead of a hand-rolled glob-to-regex translator.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// StateDirName is the tool's own state directory, always excluded and
// never includable (the self-exclusion invariant).
const StateDirName = ".pui"

// IgnoreFileName is the repo-local ignore file consulted after CLI
// excludes and before builtin defaults.
const IgnoreFileName = ".puiignore"

// Resolver decides whether a repo-relative path should be indexed,
// applying sources in precedence order: CLI excludes, repo-local ignore
// file, builtin defaults; explicit CLI includes override any of them
// except the self-exclusion invariant.
type Resolver struct {
	cliExcludes []string
	cliIncludes []string
	fileExcludes []string
	builtin     []string
}

// New builds a Resolver from explicit CLI patterns. Load a repo's
// .puiignore file separately with LoadIgnoreFile.
func New(cliExcludes, cliIncludes []string) *Resolver {
	return &Resolver{
		cliExcludes: cliExcludes,
		cliIncludes: cliIncludes,
		builtin:     builtinExcludes,
	}
}

// LoadIgnoreFile reads root/.puiignore (one doublestar pattern per line,
// '#'-prefixed lines and blanks skipped) and merges it into the
// repo-local exclude tier. A missing file is not an error.
func (r *Resolver) LoadIgnoreFile(root string) error {
	f, err := os.Open(filepath.Join(root, IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r.fileExcludes = append(r.fileExcludes, line)
	}
	return scanner.Err()
}

// Excluded reports whether path (repo-root-relative, forward-slash) should
// be skipped during discovery.
func (r *Resolver) Excluded(path string) bool {
	path = filepath.ToSlash(path)

	if matchesAny(selfExclusionPatterns, path) {
		return true
	}
	if matchesAny(r.cliIncludes, path) {
		return false
	}
	if matchesAny(r.cliExcludes, path) {
		return true
	}
	if matchesAny(r.fileExcludes, path) {
		return true
	}
	return matchesAny(r.builtin, path)
}

func matchesAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
		// doublestar.Match requires the pattern and path to have the same
		// number of path components unless '**' is used; also try the
		// pattern against every suffix so relative (non-anchored) excludes
		// behave like gitignore's "matches anywhere in the tree" rule.
		parts := strings.Split(path, "/")
		for i := 1; i < len(parts); i++ {
			suffix := strings.Join(parts[i:], "/")
			if ok, _ := doublestar.Match(p, suffix); ok {
				return true
			}
		}
	}
	return false
}

var selfExclusionPatterns = []string{
	StateDirName,
	StateDirName + "/**",
	"**/" + StateDirName,
	"**/" + StateDirName + "/**",
}

// builtinExcludes mirrors the default exclusion set of VCS directories,
// language-ecosystem dependency/build directories and editor temp files.
var builtinExcludes = []string{
	"**/.git/**",
	"**/.hg/**",
	"**/.svn/**",

	"**/node_modules/**",
	"**/vendor/**",
	"**/bower_components/**",
	"**/.bundle/**",
	"**/.gradle/**",
	"**/.m2/**",
	"**/.cargo/**",
	"**/venv/**",
	"**/virtualenv/**",
	"**/.venv/**",
	"**/site-packages/**",
	"**/__pycache__/**",

	"**/dist/**",
	"**/build/**",
	"**/out/**",
	"**/target/**",
	"**/bin/**",
	"**/obj/**",
	"**/*.min.js",
	"**/*.min.css",

	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/*.tmp",
	"**/*.bak",

	"**/*.png", "**/*.jpg", "**/*.jpeg", "**/*.gif", "**/*.ico", "**/*.svg",
	"**/*.woff", "**/*.woff2", "**/*.ttf", "**/*.eot",
	"**/*.zip", "**/*.tar", "**/*.gz", "**/*.jar", "**/*.war",
	"**/*.so", "**/*.dylib", "**/*.dll", "**/*.exe",
	"**/*.pdf", "**/*.lock",
}
