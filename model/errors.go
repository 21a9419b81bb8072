package model

import (
	"errors"
	"fmt"
)

// ErrNoValidSamples is returned when a batch contains no sample with a
// usable response payload.
var ErrNoValidSamples = errors.New("no valid samples in batch")

// SpecParseError reports a structurally invalid declared interface document.
// Parsing aborts for that document only.
type SpecParseError struct {
	Detail     string
	underlying error
}

// NewSpecParseError wraps a parser fault into a SpecParseError.
func NewSpecParseError(detail string, err error) *SpecParseError {
	return &SpecParseError{Detail: detail, underlying: err}
}

func (e *SpecParseError) Error() string {
	if e.underlying != nil {
		return fmt.Sprintf("spec parse: %s: %v", e.Detail, e.underlying)
	}
	return "spec parse: " + e.Detail
}

func (e *SpecParseError) Unwrap() error {
	return e.underlying
}

// InvalidRecordError reports a single traffic record or usage log entry that
// failed shape validation. The record is skipped; the batch continues.
type InvalidRecordError struct {
	Index  int
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid record at index %d: %s", e.Index, e.Reason)
}

// UnresolvedReference is a warning about an external or dangling $ref. It is
// collected by the parser and resolved to an empty field set, never fatal.
type UnresolvedReference struct {
	Ref    string `json:"ref"`
	Reason string `json:"reason,omitempty"`
}

func (u UnresolvedReference) String() string {
	if u.Reason != "" {
		return fmt.Sprintf("unresolved reference %q: %s", u.Ref, u.Reason)
	}
	return fmt.Sprintf("unresolved reference %q", u.Ref)
}
