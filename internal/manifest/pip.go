package manifest

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

// PipScanner parses requirements.txt-style pins (name==version, with
// optional extras and environment markers ignored).
type PipScanner struct{}

func NewPipScanner() *PipScanner { return &PipScanner{} }

func (s *PipScanner) Name() string { return "pip" }

func (s *PipScanner) SupportedFiles() []string {
	return []string{"requirements.txt", "requirements-*.txt"}
}

var pipPinPattern = regexp.MustCompile(`^([A-Za-z0-9_.\-]+)(?:\[[^\]]*\])?==([A-Za-z0-9_.\-]+)`)

func (s *PipScanner) Scan(path string) ([]Dependency, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Dependency
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if idx := strings.IndexAny(line, ";"); idx != -1 {
			line = strings.TrimSpace(line[:idx]) // drop environment markers
		}
		m := pipPinPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, Dependency{Name: m[1], Version: m[2], Ecosystem: "pip", Lockfile: path})
	}
	return out, scanner.Err()
}
