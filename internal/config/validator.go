package config

import (
	"fmt"
	"runtime"

	"github.com/standardbeagle/pui/internal/engineerr"
)

// Validator validates a loaded Config and fills in any zero-valued field
// with a smart runtime-derived default, mirroring
// standardbeagle-lci's internal/config/validator.go's
// ValidateAndSetDefaults shape.
type Validator struct{}

// NewValidator returns a Validator.
func NewValidator() *Validator { return &Validator{} }

// ValidateAndSetDefaults validates cfg and applies smart defaults in
// place. Returns an *engineerr.Error (KindInternal) on the first
// violation found.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateIndex(&cfg.Index); err != nil {
		return engineerr.New(engineerr.KindInternal, "config.validate.index", err)
	}
	if err := v.validateParsing(&cfg.Parsing); err != nil {
		return engineerr.New(engineerr.KindInternal, "config.validate.parsing", err)
	}
	if err := v.validateOutput(&cfg.Output); err != nil {
		return engineerr.New(engineerr.KindInternal, "config.validate.output", err)
	}
	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateIndex(idx *Index) error {
	if idx.MaxFileSize < 0 {
		return fmt.Errorf("index.max_file_size cannot be negative, got %d", idx.MaxFileSize)
	}
	if idx.Workers < 0 {
		return fmt.Errorf("index.workers cannot be negative, got %d", idx.Workers)
	}
	if idx.BatchSize < 0 {
		return fmt.Errorf("index.batch_size cannot be negative, got %d", idx.BatchSize)
	}
	return nil
}

func (v *Validator) validateParsing(p *Parsing) error {
	if p.TimeoutMs < 0 {
		return fmt.Errorf("parsing.timeout_ms cannot be negative, got %d", p.TimeoutMs)
	}
	return nil
}

func (v *Validator) validateOutput(o *Output) error {
	if o.MaxTokens < 0 {
		return fmt.Errorf("output.max_tokens cannot be negative, got %d", o.MaxTokens)
	}
	switch o.Format {
	case "", "markdown", "json":
	default:
		return fmt.Errorf("output.format must be markdown or json, got %q", o.Format)
	}
	return nil
}

// setSmartDefaults fills zero-valued fields that Default() would
// otherwise have set, so a config file that only overrides one key
// doesn't lose the rest of the defaults.
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Index.Workers == 0 {
		cfg.Index.Workers = max(1, runtime.NumCPU())
	}
	if cfg.Index.BatchSize == 0 {
		cfg.Index.BatchSize = 1
	}
	if cfg.Index.MaxFileSize == 0 {
		cfg.Index.MaxFileSize = 2 * 1024 * 1024
	}
	if cfg.Parsing.TimeoutMs == 0 {
		cfg.Parsing.TimeoutMs = 5000
	}
	if len(cfg.Parsing.Languages) == 0 {
		cfg.Parsing.Languages = []string{"go", "python", "javascript", "typescript", "rust", "cpp"}
	}
	if cfg.Output.MaxTokens == 0 {
		cfg.Output.MaxTokens = 8000
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = "markdown"
	}
}
