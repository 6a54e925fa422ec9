package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Parsing.TimeoutMs)
	assert.Equal(t, "markdown", cfg.Output.Format)
}

func TestLoad_OverlaysKDLOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	kdl := `
index {
    exclude_dirs "vendor" "node_modules"
    max_file_size "5MB"
    workers 8
}
parsing {
    timeout_ms 2000
}
output {
    format "json"
    max_tokens 4000
}
mcp {
    metrics_addr ":9090"
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(kdl), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor", "node_modules"}, cfg.Index.ExcludeDirs)
	assert.Equal(t, int64(5*1024*1024), cfg.Index.MaxFileSize)
	assert.Equal(t, 8, cfg.Index.Workers)
	assert.Equal(t, 2000, cfg.Parsing.TimeoutMs)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, 4000, cfg.Output.MaxTokens)
	assert.Equal(t, ":9090", cfg.MCP.MetricsAddr)
}

func TestValidateAndSetDefaults_RejectsNegativeValues(t *testing.T) {
	cfg := Default()
	cfg.Index.MaxFileSize = -1
	err := NewValidator().ValidateAndSetDefaults(cfg)
	assert.Error(t, err)
}

func TestValidateAndSetDefaults_FillsZeroValuedFields(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, NewValidator().ValidateAndSetDefaults(cfg))
	assert.Greater(t, cfg.Index.Workers, 0)
	assert.Equal(t, 5000, cfg.Parsing.TimeoutMs)
	assert.Equal(t, "markdown", cfg.Output.Format)
}
