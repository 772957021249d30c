package xbase

import (
	"errors"
	"fmt"

	"github.com/xbasekit/xbase/internal/codec"
	"github.com/xbasekit/xbase/internal/memo"
)

// DataOverflowError reports a value too large for its field. It is local to
// the single field write; the record buffer is untouched.
type DataOverflowError = codec.OverflowError

// FieldSpecError reports a malformed field-creation literal, rejected before
// any mutation occurs.
type FieldSpecError = codec.SpecError

// ErrWriteVerify is returned when the memo store's post-write self check
// reads back different bytes than it wrote.
var ErrWriteVerify = memo.ErrVerify

var (
	// ErrClosed is returned by any operation on a closed table.
	ErrClosed = errors.New("table is closed")

	// ErrReadOnly is returned by mutating operations on a read-only table.
	ErrReadOnly = errors.New("table is opened read-only")

	// ErrNotFound is returned by index and list searches, and by positional
	// access out of range.
	ErrNotFound = errors.New("not found")

	// ErrNoFlux is returned when a field write is attempted outside a flux
	// session.
	ErrNoFlux = errors.New("record is not in a flux session")

	// ErrInFlux is returned when a flux session is started on a record that
	// already has one open.
	ErrInFlux = errors.New("record is already in a flux session")

	// ErrSkipRecord may be returned by a key function to keep a record out
	// of an index.
	ErrSkipRecord = errors.New("skip record")
)

// StructureError reports a corrupt header, field-descriptor block, or
// unreadable record. It is fatal for the operation that found it.
type StructureError struct {
	Path    string
	Message string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func structuref(path, format string, args ...any) error {
	return &StructureError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// FieldMissingError reports a reference to a field the table does not have.
type FieldMissingError struct {
	Field string
}

func (e *FieldMissingError) Error() string {
	return fmt.Sprintf("field %s does not exist", e.Field)
}

// StaleError reports navigation over a collection whose backing table has
// been packed (record numbers renumbered) since the collection captured them.
type StaleError struct {
	Table string
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("table %s has been packed; collection references are stale", e.Table)
}

// AmbiguousTypeError reports a version byte that is legal under more than
// one dialect when none was requested explicitly.
type AmbiguousTypeError struct {
	Version    byte
	Candidates []string
}

func (e *AmbiguousTypeError) Error() string {
	return fmt.Sprintf("version byte %#x matches multiple dialects %v; specify one with WithDialect", e.Version, e.Candidates)
}
