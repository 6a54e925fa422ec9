package manifest

import (
	"os"
	"regexp"
	"strings"
)

// CargoScanner parses Rust's Cargo.lock (TOML [[package]] sections).
type CargoScanner struct{}

func NewCargoScanner() *CargoScanner { return &CargoScanner{} }

func (s *CargoScanner) Name() string { return "cargo" }

func (s *CargoScanner) SupportedFiles() []string { return []string{"Cargo.lock"} }

var (
	cargoNamePattern    = regexp.MustCompile(`(?m)^name\s*=\s*"([^"]+)"`)
	cargoVersionPattern = regexp.MustCompile(`(?m)^version\s*=\s*"([^"]+)"`)
)

func (s *CargoScanner) Scan(path string) ([]Dependency, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var out []Dependency
	for _, section := range strings.Split(string(content), "[[package]]") {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		if idx := strings.Index(section, "[["); idx != -1 {
			section = section[:idx]
		}

		var name, version string
		if m := cargoNamePattern.FindStringSubmatch(section); m != nil {
			name = m[1]
		}
		if m := cargoVersionPattern.FindStringSubmatch(section); m != nil {
			version = m[1]
		}
		if name != "" && version != "" {
			out = append(out, Dependency{Name: name, Version: version, Ecosystem: "cargo", Lockfile: path})
		}
	}
	return out, nil
}
