package manifest

import (
	"encoding/json"
	"os"
	"strings"
)

// NpmScanner parses npm's package-lock.json (v1-v3 formats).
type NpmScanner struct{}

func NewNpmScanner() *NpmScanner { return &NpmScanner{} }

func (s *NpmScanner) Name() string { return "npm" }

func (s *NpmScanner) SupportedFiles() []string { return []string{"package-lock.json"} }

func (s *NpmScanner) Scan(path string) ([]Dependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lockfile packageLockJSON
	if err := json.Unmarshal(data, &lockfile); err != nil {
		return nil, err
	}

	var out []Dependency
	if lockfile.Packages != nil {
		for pkgPath, pkg := range lockfile.Packages {
			if pkgPath == "" {
				continue
			}
			name := extractNpmPackageName(pkgPath)
			if name == "" {
				continue
			}
			out = append(out, Dependency{Name: name, Version: pkg.Version, Ecosystem: "npm", Lockfile: path, IsDev: pkg.Dev})
		}
	}
	if lockfile.Dependencies != nil && len(out) == 0 {
		out = extractNpmV1Dependencies(lockfile.Dependencies, path, false)
	}
	return out, nil
}

func extractNpmV1Dependencies(deps map[string]packageLockV1Dep, lockfile string, dev bool) []Dependency {
	var out []Dependency
	for name, pkg := range deps {
		out = append(out, Dependency{Name: name, Version: pkg.Version, Ecosystem: "npm", Lockfile: lockfile, IsDev: pkg.Dev || dev})
		if pkg.Dependencies != nil {
			out = append(out, extractNpmV1Dependencies(pkg.Dependencies, lockfile, pkg.Dev || dev)...)
		}
	}
	return out
}

// extractNpmPackageName pulls a package name out of a package-lock.json v2/v3
// "packages" key, e.g. "node_modules/@types/node" -> "@types/node".
func extractNpmPackageName(pkgPath string) string {
	const prefix = "node_modules/"
	if !strings.HasPrefix(pkgPath, prefix) {
		return ""
	}
	name := strings.TrimPrefix(pkgPath, prefix)
	if idx := strings.LastIndex(name, prefix); idx != -1 {
		name = name[idx+len(prefix):]
	}
	return name
}

type packageLockJSON struct {
	Packages     map[string]packageLockV2Pkg `json:"packages"`
	Dependencies map[string]packageLockV1Dep `json:"dependencies"`
}

type packageLockV2Pkg struct {
	Version string `json:"version"`
	Dev     bool   `json:"dev"`
}

type packageLockV1Dep struct {
	Version      string                      `json:"version"`
	Dev          bool                        `json:"dev"`
	Dependencies map[string]packageLockV1Dep `json:"dependencies"`
}
