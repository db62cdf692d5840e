// Package apperr classifies errors that cross the HTTP boundary.
//
// Validation, authorization and not-found errors are surfaced to the caller
// as-is. Remote errors wrap a failing store or provider call. Callers pick
// between MustSucceed, which propagates, and BestEffort, which logs and
// falls back, so the contract is visible at the call site.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindRateLimited
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindRateLimited:
		return "rate_limited"
	case KindRemote:
		return "remote"
	}
	return "unknown"
}

type Error struct {
	Kind       Kind
	Msg        string
	Err        error
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error { return &Error{Kind: KindValidation, Msg: msg} }

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(msg string) error     { return &Error{Kind: KindNotFound, Msg: msg} }
func Unauthorized(msg string) error { return &Error{Kind: KindUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &Error{Kind: KindForbidden, Msg: msg} }

func Remote(msg string, err error) error { return &Error{Kind: KindRemote, Msg: msg, Err: err} }

func RateLimited(retryAfter time.Duration) error {
	return &Error{Kind: KindRateLimited, Msg: "too many attempts", RetryAfter: retryAfter}
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, k Kind) bool { return KindOf(err) == k }

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindRemote:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Message is the text safe to show to a client. Remote and unknown errors
// never leak their cause.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal error"
}

// RetryAfterHeader returns the Retry-After value in whole seconds, or "".
func RetryAfterHeader(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindRateLimited && e.RetryAfter > 0 {
		secs := int((e.RetryAfter + time.Second - 1) / time.Second)
		return strconv.Itoa(secs)
	}
	return ""
}

// MustSucceed passes classified errors through and wraps anything else as a
// remote failure of op. A nil err stays nil.
func MustSucceed(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return Remote(op+" failed", err)
}

// BestEffort runs fn and returns its value. On error it logs under event and
// returns fallback instead.
func BestEffort[T any](log zerolog.Logger, event string, fallback T, fn func() (T, error)) T {
	v, err := fn()
	if err != nil {
		log.Warn().Err(err).Msg(event)
		return fallback
	}
	return v
}

// BestEffortDo is BestEffort for calls with no result. It reports whether fn
// succeeded.
func BestEffortDo(log zerolog.Logger, event string, fn func() error) bool {
	if err := fn(); err != nil {
		log.Warn().Err(err).Msg(event)
		return false
	}
	return true
}
