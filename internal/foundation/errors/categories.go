package errors

// ErrorCategory classifies a failure by the stage of the build that owns it.
// The category decides the process exit code.
type ErrorCategory string

const (
	// CategoryConfig covers the build file and the model derived from it:
	// duplicate or underivable module names, malformed link URLs, invalid
	// baselines, unknown dependencies and cycles. Always raised before any
	// external process starts.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"

	// CategoryComposition aborts one artifact: ambiguous unversioned
	// entries, module names colliding after relocation, two descriptors.
	CategoryComposition ErrorCategory = "composition"

	// CategoryCollaborator is a non-zero exit of the compiler or the
	// documentation generator. The tool output travels in ContextDiagnostics.
	CategoryCollaborator ErrorCategory = "collaborator"

	CategoryNetwork    ErrorCategory = "network"
	CategoryGit        ErrorCategory = "git"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryDocs       ErrorCategory = "docs"
	CategoryEventStore ErrorCategory = "eventstore"
	CategoryRuntime    ErrorCategory = "runtime"
	CategoryInternal   ErrorCategory = "internal"
)

// ExitCode is the process status the CLI reports for the category.
func (c ErrorCategory) ExitCode() int {
	switch c {
	case CategoryValidation:
		return 2
	case CategoryNotFound:
		return 4
	case CategoryConfig:
		return 7
	case CategoryNetwork, CategoryGit:
		return 8
	case CategoryInternal:
		return 10
	case CategoryComposition, CategoryCollaborator, CategoryFileSystem, CategoryDocs:
		return 11
	case CategoryRuntime, CategoryEventStore:
		return 12
	default:
		return 1
	}
}

// ErrorSeverity indicates how far a failure reaches.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // the whole run stops
	SeverityError   ErrorSeverity = "error"   // the current task fails
	SeverityWarning ErrorSeverity = "warning" // reported, output still usable
)

// RetryStrategy tells callers whether repeating the operation can help.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryBackoff    RetryStrategy = "backoff"
	RetryUserAction RetryStrategy = "user"
)

// Well-known context keys.
const (
	ContextProject     = "project"
	ContextModule      = "module"
	ContextPath        = "path"
	ContextURL         = "url"
	ContextDiagnostics = "diagnostics"
)

// locationKeys are shown in short CLI messages and logged as attributes.
var locationKeys = []string{ContextProject, ContextModule, ContextPath, ContextURL}

// ErrorContext holds structured details of a failure.
type ErrorContext map[string]any

// Set adds or updates a value, allocating the map when needed.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get retrieves a value.
func (c ErrorContext) Get(key string) (any, bool) {
	value, ok := c[key]
	return value, ok
}

// GetString retrieves a string value.
func (c ErrorContext) GetString(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}
