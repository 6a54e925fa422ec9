// Package manifest scans dependency lockfiles (npm, cargo, go, pip) and
// produces store.Dependency rows (§3.1), one per resolved package.
//
// Grounded on josephgoksu-TaskWing's internal/codeintel/manifest package
// (the ManifestScanner interface and its per-ecosystem scanners), adapted
// to this module's store.Dependency shape and to feed the Indexer instead
// of a standalone CLI.
package manifest

import "path/filepath"

// Scanner parses one kind of lockfile into Dependency rows.
type Scanner interface {
	// Name identifies the scanner (e.g. "npm", "cargo", "go", "pip").
	Name() string
	// SupportedFiles returns the glob patterns (relative to a scan root)
	// this scanner recognizes.
	SupportedFiles() []string
	// Scan parses the lockfile at path.
	Scan(path string) ([]Dependency, error)
}

// Dependency mirrors store.Dependency so scanners don't import internal/store
// directly; the Indexer converts between the two at the call site.
type Dependency struct {
	Name      string
	Version   string
	Ecosystem string
	Lockfile  string
	IsDev     bool
}

// AllScanners returns every scanner this module ships.
func AllScanners() []Scanner {
	return []Scanner{
		NewNpmScanner(),
		NewCargoScanner(),
		NewGoScanner(),
		NewPipScanner(),
	}
}

// ScanDirectory walks dir (non-recursively per scanner glob, since
// lockfiles are conventionally repo-root artifacts) applying every
// scanner's SupportedFiles patterns, skipping a lockfile a scanner can't
// parse rather than aborting the whole scan.
func ScanDirectory(dir string, scanners []Scanner) ([]Dependency, error) {
	var out []Dependency
	for _, sc := range scanners {
		for _, pattern := range sc.SupportedFiles() {
			matches, err := filepath.Glob(filepath.Join(dir, pattern))
			if err != nil {
				continue
			}
			for _, match := range matches {
				deps, err := sc.Scan(match)
				if err != nil {
					continue
				}
				out = append(out, deps...)
			}
		}
	}
	return out, nil
}
