// Package faults defines the three fatal error categories raised while
// loading taxonomy rows and membership tables.
//
// Every error is terminal for a run. Callers classify with errors.Is against
// the sentinels below and never retry.
package faults

import (
	"errors"
	"fmt"
)

var (
	// ErrInputShape marks malformed or missing input columns.
	ErrInputShape = errors.New("input shape error")
	// ErrReference marks a key (classification code, handle) with no entry.
	ErrReference = errors.New("reference error")
	// ErrInvariant marks a duplicate item, collection or sibling.
	ErrInvariant = errors.New("invariant error")
)

// ShapeError reports a missing mandatory value or column.
type ShapeError struct {
	File  string
	Line  int
	Field string
	Raw   string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("mandatory field '%s' is empty in file '%s' [line %d] %s", e.Field, e.File, e.Line, e.Raw)
}

func (e *ShapeError) Unwrap() error { return ErrInputShape }

// ReferenceError reports a lookup key that resolved to nothing.
type ReferenceError struct {
	Kind string // what was being looked up, e.g. "cluster code"
	Key  string
	Line int    // 1-based source line, 0 when not row-driven
	Raw  string // offending source row, if any
}

func (e *ReferenceError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("lookup for %s '%s' not found [line %d] %s", e.Kind, e.Key, e.Line, e.Raw)
	}
	return fmt.Sprintf("lookup for %s '%s' not found", e.Kind, e.Key)
}

func (e *ReferenceError) Unwrap() error { return ErrReference }

// InvariantError reports a structural duplicate.
type InvariantError struct {
	ID     string
	Reason string
	Source string
}

func (e *InvariantError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: %s (in '%s')", e.ID, e.Reason, e.Source)
	}
	return fmt.Sprintf("%s: %s", e.ID, e.Reason)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }
