package domain

import (
	"errors"
	"fmt"
)

// SchemaError reports a row whose field count does not match the header row.
// Row-level: the row is skipped and the parse continues.
type SchemaError struct {
	Row    int // 1-based data row number
	Fields int
	Want   int
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("row %d has %d fields, want %d", e.Row, e.Fields, e.Want)
}

// ValidationError reports a normalized record violating a domain invariant.
// Row-level: the row is skipped and the parse continues.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// LimitError reports an input exceeding a size ceiling. Input-level: the
// whole input is rejected rather than partially processed.
type LimitError struct {
	Limit string // "bytes", "rows", or "columns"
	Max   int64
	Got   int64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("input exceeds %s limit: %d > %d", e.Limit, e.Got, e.Max)
}

// FetchError reports a failed dataset download. Fatal for the batch driver;
// the runtime service surfaces it as retryable.
type FetchError struct {
	URL    string
	Status int // HTTP status, 0 for transport errors
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ErrEmptyResult signals a parse that succeeded but produced zero valid
// records. Callers must surface this as a distinct "no data" condition,
// never as silent success.
var ErrEmptyResult = errors.New("no valid records in input")
