package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork indicates the provider could not be reached.
	ErrNetwork = errors.New("provider network error")

	// ErrTimeout indicates the provider did not answer in time.
	ErrTimeout = errors.New("provider timeout")

	// ErrHTTP indicates an unexpected HTTP status or an unreadable response.
	ErrHTTP = errors.New("provider http error")

	// ErrRejected indicates the provider refused the request, for example an
	// invalid API key or an exhausted rate limit.
	ErrRejected = errors.New("provider rejected request")

	// ErrAPIKeyRequired indicates the client was built without credentials.
	ErrAPIKeyRequired = errors.New("provider api key required")
)

// ErrorKind classifies a ProviderError.
type ErrorKind string

const (
	KindNetwork  ErrorKind = "network"
	KindTimeout  ErrorKind = "timeout"
	KindHTTP     ErrorKind = "http"
	KindRejected ErrorKind = "rejected"
)

// ProviderError describes a failed provider call.
type ProviderError struct {
	Kind       ErrorKind
	Op         string // e.g. "top-headlines"
	StatusCode int    // HTTP status, 0 when no response was received
	Code       string // Provider error code, if any
	Message    string // Provider error message, if any
	Err        error  // Underlying cause, if any
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the kind sentinel and the underlying cause.
func (e *ProviderError) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindTimeout:
		return ErrTimeout
	case KindRejected:
		return ErrRejected
	default:
		return ErrHTTP
	}
}
