// Package engineerr defines the typed error hierarchy used across the
// engine (§7), modeled on standardbeagle-lci's internal/errors package
// (IndexingError/Unwrap/Recoverable shape) and extended with the exact
// error kinds SPEC_FULL.md §7 enumerates.
package engineerr

import (
	"fmt"
	"time"
)

// Kind identifies one of the error policies enumerated in §7.
type Kind string

const (
	KindPathEscapesRoot Kind = "path_escapes_root"
	KindFileTooLarge    Kind = "file_too_large"
	KindParseFailure    Kind = "parse_failure"
	KindStoreCorrupt    Kind = "store_corrupt"
	KindSchemaTooNew    Kind = "schema_too_new"
	KindBudgetTooSmall  Kind = "budget_too_small"
	KindSymbolNotFound  Kind = "symbol_not_found"
	KindCancelled       Kind = "cancelled"
	KindInternal        Kind = "internal"
)

// ExitCode maps a Kind to the process exit code from §6.
func (k Kind) ExitCode() int {
	switch k {
	case KindPathEscapesRoot, KindFileTooLarge, KindBudgetTooSmall, KindSymbolNotFound:
		return 2
	case KindParseFailure, KindStoreCorrupt:
		return 3
	case KindSchemaTooNew:
		return 4
	case KindCancelled:
		return 5
	default:
		return 3
	}
}

// Error is the engine's typed error value. It is never used to trigger
// arbitrary code execution or shell invocation (§7).
type Error struct {
	Kind        Kind
	Op          string
	Path        string
	Underlying  error
	Timestamp   time.Time
	Recoverable bool
}

// New creates an Error of the given kind for operation op.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Underlying: err, Timestamp: time.Now()}
}

// WithPath attaches the path the error concerns.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithRecoverable marks whether the operation may be retried.
func (e *Error) WithRecoverable(recoverable bool) *Error {
	e.Recoverable = recoverable
	return e
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s failed for %s: %v", e.Kind, e.Op, e.Path, e.Underlying)
	}
	return fmt.Sprintf("%s: %s failed: %v", e.Kind, e.Op, e.Underlying)
}

// Unwrap supports errors.Is/errors.As against the underlying cause.
func (e *Error) Unwrap() error { return e.Underlying }

// Is supports errors.Is(err, engineerr.KindX) style checks via a sentinel
// wrapper (kindSentinel below), so callers can write:
//
//	if errors.Is(err, engineerr.Sentinel(engineerr.KindPathEscapesRoot)) { ... }
func (e *Error) Is(target error) bool {
	s, ok := target.(kindSentinel)
	return ok && e.Kind == Kind(s)
}

type kindSentinel Kind

func (s kindSentinel) Error() string { return string(s) + " (sentinel)" }

// Sentinel returns a comparable error value usable with errors.Is to test
// an Error's Kind without type-asserting.
func Sentinel(k Kind) error { return kindSentinel(k) }
