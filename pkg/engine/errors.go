// Package engine orchestrates a single scrape: ATS adapter fast-path, or a
// generic fetch → detect → (maybe render) → extract → paginate loop, folding
// every failure mode into one abstract error taxonomy the board's health
// machine and scheduler backoff can consume uniformly.
package engine

import (
	"errors"
	"fmt"
)

// ErrorKind is a stable identifier for the abstract reason a scrape failed,
// recorded on the board's attempt log rather than a raw error string.
type ErrorKind string

const (
	ErrorNetwork       ErrorKind = "network"
	ErrorHTTPStatus    ErrorKind = "http_status"
	ErrorRenderTimeout ErrorKind = "render_timeout"
	ErrorRenderError   ErrorKind = "render_error"
	ErrorParse         ErrorKind = "parse_error"
	ErrorATS           ErrorKind = "ats_error"
	ErrorValidation    ErrorKind = "validation"
)

// ScrapeError wraps an underlying error with its abstract kind, so callers
// at the engine boundary can reduce any failure to (ok=false, count=0,
// error_kind=<taxonomy>) without inspecting error chains.
type ScrapeError struct {
	Kind ErrorKind
	Err  error
}

func (e *ScrapeError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

// NewScrapeError wraps err with kind, or returns nil if err is nil.
func NewScrapeError(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &ScrapeError{Kind: kind, Err: err}
}

// KindOf extracts the abstract kind from err if it (or something it wraps)
// is a *ScrapeError, defaulting to ErrorNetwork for an un-classified failure.
func KindOf(err error) ErrorKind {
	var scrapeErr *ScrapeError
	if errors.As(err, &scrapeErr) {
		return scrapeErr.Kind
	}
	return ErrorNetwork
}
