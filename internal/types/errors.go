package types

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by lookups that match no record.
	ErrNotFound = errors.New("not found")

	// ErrCycleInProgress is returned when another sync cycle holds the
	// provider guard.
	ErrCycleInProgress = errors.New("sync cycle already in progress")
)

// TransportError wraps network, timeout and non-2xx HTTP failures.
type TransportError struct {
	Endpoint   string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport %s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError wraps malformed or undecodable responses.
type ParseError struct {
	Endpoint string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Endpoint, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StoreError wraps persistence failures.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

func IsStore(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// Retryable reports whether a later attempt could succeed without any
// change on either side. Only transport failures qualify.
func Retryable(err error) bool {
	return IsTransport(err)
}

// Kind names the failure class of err for logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsTransport(err):
		return "transport"
	case IsParse(err):
		return "parse"
	case IsStore(err):
		return "store"
	default:
		return "other"
	}
}
