package types

import (
	"context"
	"errors"
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Habit operation errors.
var (
	ErrHabitNotFound = errors.New("habit not found")
	ErrInvalidHabit  = errors.New("invalid habit")
	ErrInvalidName   = errors.New("habit name must not be empty")
	ErrDayOutOfRange = errors.New("day must be between 1 and 31")
	ErrUnknownColumn = errors.New("unknown column")
	ErrEmptyUpdate   = errors.New("update changes nothing")
	ErrInvalidText   = errors.New("habit text must be valid UTF-8")
)

// Backend errors.
var (
	ErrItemNotFound   = errors.New("item not found")
	ErrNoHandle       = errors.New("store handle not provisioned")
	ErrInvalidRange   = errors.New("invalid A1 range")
	ErrBackendClosed  = errors.New("backend is closed")
	ErrAlreadyOpen    = errors.New("backend is already open")
	ErrUnauthorized   = errors.New("invalid credentials")
	ErrForbidden      = errors.New("insufficient permissions")
	ErrTokenMissing   = errors.New("access token is not configured")
	ErrServerFailure  = errors.New("backend server error")
	ErrUnexpectedBody = errors.New("unexpected response body")
)

// ErrorKind is the error taxonomy surfaced to callers.
type ErrorKind string

// Error kinds.
const (
	KindNetwork        ErrorKind = "network"
	KindAuthentication ErrorKind = "authentication"
	KindAuthorization  ErrorKind = "authorization"
	KindValidation     ErrorKind = "validation"
	KindNotFound       ErrorKind = "not-found"
	KindServer         ErrorKind = "server"
	KindUnknown        ErrorKind = "unknown"
)

// StoreError is a classified failure. Message is suitable for display;
// Err keeps the underlying cause.
type StoreError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Status  int // HTTP status when the failure came from a response
	Err     error
}

func (e *StoreError) Error() string {
	if e.Op != "" {
		return e.Op + ": " + e.Message
	}
	return e.Message
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsAuthentication reports whether err is an authentication-class failure.
func IsAuthentication(err error) bool {
	return Classify(err).Kind == KindAuthentication
}

// sentinelKinds maps the package sentinels to their error kinds.
var sentinelKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrHabitNotFound, KindNotFound},
	{ErrItemNotFound, KindNotFound},
	{ErrUnknownColumn, KindNotFound},
	{ErrNoHandle, KindNotFound},
	{ErrInvalidHabit, KindValidation},
	{ErrInvalidName, KindValidation},
	{ErrDayOutOfRange, KindValidation},
	{ErrEmptyUpdate, KindValidation},
	{ErrInvalidText, KindValidation},
	{ErrInvalidRange, KindValidation},
	{ErrUnauthorized, KindAuthentication},
	{ErrTokenMissing, KindAuthentication},
	{ErrForbidden, KindAuthorization},
	{ErrServerFailure, KindServer},
	{ErrUnexpectedBody, KindServer},
	{ErrBackendClosed, KindUnknown},
	{ErrAlreadyOpen, KindUnknown},
}

// messagePatterns classify untyped errors by their text, most specific
// first. Patterns match whole words only.
var messagePatterns = []struct {
	kind ErrorKind
	re   *regexp.Regexp
}{
	{KindAuthentication, wordPattern("401", "unauthorized", "unauthenticated", "invalid credentials", "invalid_grant", "invalid token", "token expired")},
	{KindAuthorization, wordPattern("403", "forbidden", "insufficient scope", "insufficient permission", "permission denied")},
	{KindNotFound, wordPattern("404", "not found")},
	{KindServer, wordPattern("500", "502", "503", "504", "internal server error", "service unavailable", "bad gateway")},
	{KindNetwork, wordPattern("connection refused", "connection reset", "no such host", "timeout", "network is unreachable", "eof")},
}

func wordPattern(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// rootCause follows single-error wrapping down to the innermost cause.
// Wrapper text carries ids and operation names, not the failure class.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// Classify maps err to a StoreError. A StoreError anywhere in the chain is
// returned as is; sentinels and well-known transport errors are mapped to
// their kind; anything else is classified by the message of its innermost
// cause, falling back to KindUnknown. Classify(nil) returns nil.
func Classify(err error) *StoreError {
	if err == nil {
		return nil
	}

	var se *StoreError
	if errors.As(err, &se) {
		return se
	}

	for _, s := range sentinelKinds {
		if errors.Is(err, s.err) {
			return &StoreError{Kind: s.kind, Message: sentence(s.err.Error()), Err: err}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &StoreError{Kind: KindNetwork, Message: sentence(err.Error()), Err: err}
	}
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return &StoreError{Kind: KindNetwork, Message: sentence(err.Error()), Err: err}
	}

	cause := strings.ToLower(rootCause(err).Error())
	for _, mp := range messagePatterns {
		if mp.re.MatchString(cause) {
			return &StoreError{Kind: mp.kind, Message: sentence(err.Error()), Err: err}
		}
	}
	return &StoreError{Kind: KindUnknown, Message: sentence(err.Error()), Err: err}
}

// sentence upper-cases the first letter of msg.
func sentence(msg string) string {
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}
