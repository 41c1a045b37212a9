package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// ClassifiedError is a failure with a category, a severity and structured
// context. Values are immutable once built.
type ClassifiedError struct {
	category ErrorCategory
	severity ErrorSeverity
	retry    RetryStrategy
	message  string
	cause    error
	context  ErrorContext
}

// Error renders one line: category, message, context in key order, cause.
// Captured diagnostics are left out; they can span many lines.
func (e *ClassifiedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s:%s] %s", e.category, e.severity, e.message)
	var parts []string
	for _, k := range slices.Sorted(maps.Keys(e.context)) {
		if k != ContextDiagnostics {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.context[k]))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	return b.String()
}

func (e *ClassifiedError) Unwrap() error { return e.cause }

func (e *ClassifiedError) Category() ErrorCategory      { return e.category }
func (e *ClassifiedError) Severity() ErrorSeverity      { return e.severity }
func (e *ClassifiedError) RetryStrategy() RetryStrategy { return e.retry }
func (e *ClassifiedError) Message() string              { return e.message }
func (e *ClassifiedError) Context() ErrorContext        { return e.context }

// Diagnostics returns output captured from an external tool, if any.
func (e *ClassifiedError) Diagnostics() string {
	s, _ := e.context.GetString(ContextDiagnostics)
	return s
}

// WithContext returns a copy of e with key set.
func (e *ClassifiedError) WithContext(key string, value any) *ClassifiedError {
	out := *e
	out.context = maps.Clone(e.context)
	out.context = out.context.Set(key, value)
	return &out
}

// Is matches another ClassifiedError with the same category and message.
func (e *ClassifiedError) Is(target error) bool {
	other, ok := target.(*ClassifiedError)
	return ok && e.category == other.category && e.message == other.message
}

// Attrs returns the category and location context as log attributes.
// Diagnostics are included when present.
func (e *ClassifiedError) Attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("category", string(e.category))}
	for _, key := range locationKeys {
		if v, ok := e.context.GetString(key); ok && v != "" {
			attrs = append(attrs, slog.String(key, v))
		}
	}
	if d := e.Diagnostics(); d != "" {
		attrs = append(attrs, slog.String(ContextDiagnostics, d))
	}
	return attrs
}

// AsClassified returns the first ClassifiedError in the chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var classified *ClassifiedError
	if stderrors.As(err, &classified) {
		return classified, true
	}
	return nil, false
}

// HasCategory reports whether the first classified error in the chain has category.
func HasCategory(err error, category ErrorCategory) bool {
	classified, ok := AsClassified(err)
	return ok && classified.category == category
}

// GetCategory returns the category of err, or CategoryInternal for
// unclassified errors.
func GetCategory(err error) ErrorCategory {
	if classified, ok := AsClassified(err); ok {
		return classified.category
	}
	return CategoryInternal
}

// GetRetryStrategy returns the retry strategy of err, or RetryNever.
func GetRetryStrategy(err error) RetryStrategy {
	if classified, ok := AsClassified(err); ok {
		return classified.retry
	}
	return RetryNever
}
