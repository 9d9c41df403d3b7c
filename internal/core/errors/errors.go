// Package errors defines the coded errors returned across package
// boundaries. Callers branch on the code, never on the message.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

type ErrorCode string

const (
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeParseFailed     ErrorCode = "PARSE_FAILED"
	CodeReadFailed      ErrorCode = "READ_FAILED"
)

// Context keys.
const (
	CtxPath = "path"
	CtxRule = "rule"
)

// DomainError carries a code, a message, an optional cause and key/value
// context such as the file being analysed.
type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]any
}

func (e *DomainError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	for _, k := range e.contextKeys() {
		fmt.Fprintf(&b, " %s=%v", k, e.Context[k])
	}
	return b.String()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// LogValue renders the error as a group so handlers print code and context
// as separate attributes.
func (e *DomainError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("code", string(e.Code)),
		slog.String("msg", e.Message),
	}
	if e.Err != nil {
		attrs = append(attrs, slog.String("cause", e.Err.Error()))
	}
	for _, k := range e.contextKeys() {
		attrs = append(attrs, slog.Any(k, e.Context[k]))
	}
	return slog.GroupValue(attrs...)
}

func (e *DomainError) contextKeys() []string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext records key on the first DomainError in err's chain. Errors
// without one are wrapped as internal errors.
func AddContext(err error, key string, value any) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		if de.Context == nil {
			de.Context = make(map[string]any)
		}
		de.Context[key] = value
		return err
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "unexpected error",
		Err:     err,
		Context: map[string]any{key: value},
	}
}

// CodeOf returns the code of the first DomainError in err's chain, or
// CodeInternal.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
