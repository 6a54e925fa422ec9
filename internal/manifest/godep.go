package manifest

import (
	"bufio"
	"os"
	"strings"
)

// GoScanner parses go.sum, the closest Go equivalent to a lockfile: one
// line per (module, version) pair actually resolved into the build.
type GoScanner struct{}

func NewGoScanner() *GoScanner { return &GoScanner{} }

func (s *GoScanner) Name() string { return "go" }

func (s *GoScanner) SupportedFiles() []string { return []string{"go.sum"} }

func (s *GoScanner) Scan(path string) ([]Dependency, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seen := make(map[string]bool)
	var out []Dependency
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		module, version := fields[0], fields[1]
		// go.sum lists both the module's own hash and its go.mod hash
		// (version suffixed "/go.mod"); only the former is a real
		// dependency entry.
		version = strings.TrimSuffix(version, "/go.mod")
		key := module + "@" + version
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Dependency{Name: module, Version: version, Ecosystem: "go", Lockfile: path})
	}
	return out, scanner.Err()
}
