// Package errs defines the closed set of error kinds shared by the store,
// the remote service and the client side of the workflow engine.
package errs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies an error for propagation and retry decisions.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindValidation
	KindNetwork
	KindTimeout
	KindServer
)

// Wire codes used in the error envelope.
const (
	CodeNotFound   = "NOT_FOUND"
	CodeConflict   = "CONFLICT"
	CodeValidation = "VALIDATION_ERROR"
	CodeNetwork    = "NETWORK_ERROR"
	CodeTimeout    = "TIMEOUT"
	CodeServer     = "SERVER_ERROR"
)

var kindCodes = [...]string{
	KindUnknown:    CodeServer,
	KindNotFound:   CodeNotFound,
	KindConflict:   CodeConflict,
	KindValidation: CodeValidation,
	KindNetwork:    CodeNetwork,
	KindTimeout:    CodeTimeout,
	KindServer:     CodeServer,
}

var kindStatus = [...]int{
	KindUnknown:    http.StatusInternalServerError,
	KindNotFound:   http.StatusNotFound,
	KindConflict:   http.StatusConflict,
	KindValidation: http.StatusBadRequest,
	KindNetwork:    http.StatusServiceUnavailable,
	KindTimeout:    http.StatusGatewayTimeout,
	KindServer:     http.StatusInternalServerError,
}

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindServer:
		return "server"
	}
	return "unknown"
}

// Code returns the envelope code of the kind.
func (k Kind) Code() string { return kindCodes[k] }

// HTTPStatus returns the status the remote service answers with for the kind.
func (k Kind) HTTPStatus() int { return kindStatus[k] }

// Retryable reports whether errors of this kind may succeed when retried.
func (k Kind) Retryable() bool {
	return k == KindNetwork || k == KindTimeout || k == KindServer
}

// KindFromCode maps an envelope code back to a Kind.
func KindFromCode(code string) Kind {
	for k, c := range kindCodes {
		if k != int(KindUnknown) && c == code {
			return Kind(k)
		}
	}
	return KindUnknown
}

// KindFromStatus maps an HTTP status to a Kind when the body carries no code.
func KindFromStatus(status int) Kind {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusGatewayTimeout, status == http.StatusRequestTimeout:
		return KindTimeout
	case status == http.StatusServiceUnavailable, status == http.StatusBadGateway:
		return KindNetwork
	case status >= 500:
		return KindServer
	}
	return KindUnknown
}

// Error is the structured error carried through every layer.
type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Retryable bool
	// Fields holds field-scoped validation messages keyed by field or question id.
	Fields map[string]string
	cause  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(e.Fields[k])
		}
		b.WriteString(")")
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches another *Error by kind, so errors.Is(err, errs.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.cause == nil
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrValidation = &Error{Kind: KindValidation}
	ErrNetwork    = &Error{Kind: KindNetwork}
	ErrTimeout    = &Error{Kind: KindTimeout}
	ErrServer     = &Error{Kind: KindServer}
)

// New builds an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:      kind,
		Code:      kind.Code(),
		Message:   fmt.Sprintf(format, args...),
		Retryable: kind.Retryable(),
	}
}

// Wrap builds an error of the given kind around cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	e := New(kind, format, args...)
	e.cause = cause
	return e
}

func NotFound(entity, id string) *Error {
	return New(KindNotFound, "%s %s not found", entity, id)
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

// Validation builds a validation error with optional field messages.
func Validation(msg string, fields map[string]string) *Error {
	e := New(KindValidation, "%s", msg)
	e.Fields = fields
	return e
}

// KindOf returns the kind of err, KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool { return err != nil && KindOf(err) == k }

// IsRetryable reports whether err may succeed on retry.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// Normalize converts any error into an *Error. Context deadlines become
// Timeout, dial/transport failures become Network and everything else that is
// not already classified becomes Server. Cancellation is returned unchanged.
func Normalize(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(KindTimeout, err, "request timed out")
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Wrap(KindTimeout, err, "request timed out")
		}
		return Wrap(KindNetwork, err, "network failure")
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return Wrap(KindNetwork, err, "network failure")
	}
	return Wrap(KindServer, err, "unexpected failure")
}
