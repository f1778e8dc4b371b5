package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/aluiziolira/go-train-punctuality/extract"
)

// ErrorKind labels a fetch or extraction failure for metrics and summaries.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindConnection  ErrorKind = "connection"
	KindForbidden   ErrorKind = "forbidden"
	KindNotFound    ErrorKind = "not_found"
	KindRateLimited ErrorKind = "rate_limited"
	KindStructural  ErrorKind = "structural"
	KindAmbiguous   ErrorKind = "ambiguous_period"
	KindOther       ErrorKind = "other"
)

// FetchError wraps a failed report request.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// SourceError attaches the report category to a failure.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return string(fetchErr.Kind)
	}
	var structural *extract.StructuralError
	if errors.As(err, &structural) {
		return string(KindStructural)
	}
	var ambiguous *extract.AmbiguousPeriodError
	if errors.As(err, &ambiguous) {
		return string(KindAmbiguous)
	}
	return string(KindOther)
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: KindTimeout, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &FetchError{Kind: KindConnection, Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return &FetchError{Kind: KindForbidden, StatusCode: statusCode, Err: wrapped}
		case http.StatusNotFound:
			return &FetchError{Kind: KindNotFound, StatusCode: statusCode, Err: wrapped}
		case http.StatusTooManyRequests:
			return &FetchError{Kind: KindRateLimited, StatusCode: statusCode, Err: wrapped}
		}
		return &FetchError{Kind: KindOther, StatusCode: statusCode, Err: wrapped}
	}

	return &FetchError{Kind: KindOther, Err: err}
}
