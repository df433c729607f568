// Package kgerr classifies the error kinds that cross component boundaries
// in the indexing core, so the workflow driver can decide whether to retry
// (spec.md §7's error taxonomy). No example repo carries a typed-error
// package of its own; the Kind-tag-plus-wrapped-cause shape follows the
// teacher's plain fmt.Errorf("%w", ...) wrapping idiom used throughout
// internal/graph and internal/indexer, generalized into one reusable type
// so internal/workflow has a single place to classify retryability.
package kgerr

import "errors"

// Kind tags an error with the taxonomy the workflow driver reasons about.
type Kind string

const (
	UnsupportedLanguage  Kind = "unsupported_language"
	ParseError           Kind = "parse_error"
	SymbolExtraction     Kind = "symbol_extraction_error"
	HierarchyBuild       Kind = "hierarchy_build_error"
	CloneNonRetryable    Kind = "clone_non_retryable"
	CloneRetryable       Kind = "clone_retryable"
	SHAValidationFailure Kind = "sha_validation_failure"
	ResourceExhausted    Kind = "resource_exhausted"
	GraphPersistence     Kind = "graph_persistence_error"
	Cancelled            Kind = "cancelled"
)

// Error wraps an underlying cause with a classification.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err (or something it wraps) carries the given kind.
func Is(err error, kind Kind) bool {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Kind == kind
	}
	return false
}

// Retryable reports whether the workflow driver should retry an activity
// that failed with err, per spec §7's propagation policy. Unclassified
// errors are treated as retryable — a per-file failure that was never
// wrapped in a kgerr.Error is assumed transient rather than fatal.
func Retryable(err error) bool {
	var ke *Error
	if !errors.As(err, &ke) {
		return true
	}
	switch ke.Kind {
	case CloneNonRetryable, SHAValidationFailure, ResourceExhausted, Cancelled:
		return false
	default:
		return true
	}
}
