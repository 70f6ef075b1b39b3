package comms

import (
	"errors"
	"fmt"
)

// Kind categorizes request and save failures so callers can decide how
// to react without string-matching messages.
type Kind int

const (
	// KindUnknown represents an unclassified failure.
	KindUnknown Kind = iota
	// KindFatalServer should abort the run, never be retried. TLS
	// certificate verification failures land here.
	KindFatalServer
	// KindServerTimeout is an HTTP 504; the caller may retry.
	KindServerTimeout
	// KindRequestTooLong is an HTTP 414; the caller should fall back
	// to POST.
	KindRequestTooLong
	// KindServerError is any other 5xx-class failure surfaced by a
	// caller.
	KindServerError
	// KindEditConflict, KindSpamBlacklist, KindPageLocked and
	// KindPageSave form the fixed save-related taxonomy.
	KindEditConflict
	KindSpamBlacklist
	KindPageLocked
	KindPageSave
)

func (k Kind) String() string {
	switch k {
	case KindFatalServer:
		return "fatal server error"
	case KindServerTimeout:
		return "server timeout"
	case KindRequestTooLong:
		return "request too long"
	case KindServerError:
		return "server error"
	case KindEditConflict:
		return "edit conflict"
	case KindSpamBlacklist:
		return "spam blacklist"
	case KindPageLocked:
		return "page locked"
	case KindPageSave:
		return "page save failed"
	default:
		return "unknown error"
	}
}

// APIError carries a classification kind, the server's error code and
// message when available, and the original cause.
type APIError struct {
	Kind  Kind
	Code  string
	Info  string
	Cause error
}

func (e *APIError) Error() string {
	msg := e.Kind.String()
	if e.Code != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	if e.Info != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Info)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// IsSaveRelated reports whether err belongs to the recoverable
// save-related taxonomy (conflict, blacklist, lock, generic save).
func IsSaveRelated(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Kind {
	case KindEditConflict, KindSpamBlacklist, KindPageLocked, KindPageSave:
		return true
	}
	return false
}

// IsServerError reports whether err is a server-side failure that a
// caller may opt to suppress.
func IsServerError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Kind == KindServerError || apiErr.Kind == KindServerTimeout
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Kind == KindFatalServer
}
