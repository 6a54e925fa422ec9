// Package pathutil provides utilities for converting between absolute and
// relative paths, and for enforcing the repo-root sandboxing boundary
// every path-accepting engine operation must honor (§7 PathEscapesRoot).
//
// Architecture Pattern:
// The engine uses absolute paths internally for consistency and to avoid
// ambiguity. However, user-facing output (pack sections, CLI/MCP results)
// uses repo-root-relative paths for readability and portability. This
// package is the conversion layer between the two representations.
package pathutil

import (
	"path/filepath"
	"strings"

	"github.com/standardbeagle/pui/internal/engineerr"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or path is already relative.
//
// Examples:
//   - ToRelative("/home/user/project/src/main.go", "/home/user/project") → "src/main.go"
//   - ToRelative("/other/location/file.go", "/home/user/project") → "/other/location/file.go" (outside root)
//   - ToRelative("src/main.go", "/home/user/project") → "src/main.go" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}
	return filepath.ToSlash(relPath)
}

// ResolveInRoot joins a user-supplied, possibly relative path against root
// and rejects any result that escapes root. This is the sandboxing
// boundary check required by §7's PathEscapesRoot policy and exercised by
// scenario S5 (zoom ../../etc/passwd must fail before any file read).
//
// input may be absolute or relative; root must be absolute. The returned
// path is always absolute and guaranteed to be root or a descendant of
// root.
func ResolveInRoot(root, input string) (string, error) {
	if input == "" {
		return "", engineerr.New(engineerr.KindPathEscapesRoot, "resolve_path", strErr("empty path")).WithPath(input)
	}

	root = filepath.Clean(root)

	var candidate string
	if filepath.IsAbs(input) {
		candidate = filepath.Clean(input)
	} else {
		candidate = filepath.Clean(filepath.Join(root, input))
	}

	rel, err := filepath.Rel(root, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", engineerr.New(engineerr.KindPathEscapesRoot, "resolve_path", strErr("path escapes repo root")).WithPath(input)
	}
	return candidate, nil
}

type strErr string

func (e strErr) Error() string { return string(e) }

// ToSlashNFCRelative normalizes a path for storage per §4.3: relative to
// root, forward-slash separators. NFC normalization itself is applied by
// the caller (internal/discover) since it requires the golang.org/x/text
// transformer, which this package does not depend on to keep pathutil
// dependency-free for reuse by pkg consumers.
func ToSlashNFCRelative(absPath, root string) string {
	return filepath.ToSlash(ToRelative(absPath, root))
}
