package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/standardbeagle/pui/internal/engineerr"
)

// Load reads root/.pui.kdl and overlays it onto Default(). A missing file
// is not an error — Load returns the defaults unchanged.
func Load(root string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(root, ConfigFileName)
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, engineerr.New(engineerr.KindInternal, "config.load", err).WithPath(path)
	}

	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return nil, engineerr.New(engineerr.KindInternal, "config.parse", err).WithPath(path)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "index":
			applyIndexSection(&cfg.Index, n.Children)
		case "parsing":
			applyParsingSection(&cfg.Parsing, n.Children)
		case "output":
			applyOutputSection(&cfg.Output, n.Children)
		case "mcp":
			applyMCPSection(&cfg.MCP, n.Children)
		}
	}
	return cfg, nil
}

func applyIndexSection(idx *Index, children []*document.Node) {
	for _, cn := range children {
		switch nodeName(cn) {
		case "exclude_dirs":
			idx.ExcludeDirs = collectStringArgs(cn)
		case "max_file_size":
			if v, ok := firstIntArg(cn); ok {
				idx.MaxFileSize = int64(v)
			} else if s, ok := firstStringArg(cn); ok {
				if sz, err := parseSize(s); err == nil {
					idx.MaxFileSize = sz
				}
			}
		case "workers":
			if v, ok := firstIntArg(cn); ok {
				idx.Workers = v
			}
		case "batch_size":
			if v, ok := firstIntArg(cn); ok {
				idx.BatchSize = v
			}
		}
	}
}

func applyParsingSection(p *Parsing, children []*document.Node) {
	for _, cn := range children {
		switch nodeName(cn) {
		case "languages":
			p.Languages = collectStringArgs(cn)
		case "language_overrides":
			for _, ocn := range cn.Children {
				if s, ok := firstStringArg(ocn); ok {
					p.LanguageOverrides[nodeName(ocn)] = s
				}
			}
		case "timeout_ms":
			if v, ok := firstIntArg(cn); ok {
				p.TimeoutMs = v
			}
		}
	}
}

func applyOutputSection(o *Output, children []*document.Node) {
	for _, cn := range children {
		switch nodeName(cn) {
		case "max_tokens":
			if v, ok := firstIntArg(cn); ok {
				o.MaxTokens = v
			}
		case "format":
			if s, ok := firstStringArg(cn); ok {
				o.Format = s
			}
		}
	}
}

func applyMCPSection(m *MCP, children []*document.Node) {
	for _, cn := range children {
		if nodeName(cn) == "metrics_addr" {
			if s, ok := firstStringArg(cn); ok {
				m.MetricsAddr = s
			}
		}
	}
}

// nodeName, firstIntArg, firstStringArg, and collectStringArgs mirror
// standardbeagle-lci's internal/config/kdl_config.go helpers over the
// same kdl-go document model.
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

// collectStringArgs reads a KDL node's string list either from its
// inline arguments (`exclude_dirs "a" "b"`) or, if none are present, from
// its children's node names (block form: `exclude_dirs { "a"; "b" }`).
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// parseSize handles size strings like "10MB", "500KB", matching lci's
// kdl_config.go convention for index.max_file_size.
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	var numStr string
	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		numStr = strings.TrimSuffix(s, "B")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, err
	}
	return num * multiplier, nil
}
