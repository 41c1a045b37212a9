package errors

// ErrorBuilder assembles a ClassifiedError.
type ErrorBuilder struct {
	err ClassifiedError
}

// NewError starts an error of category. Severity defaults to error and
// nothing is retried unless the builder says so.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{err: ClassifiedError{
		category: category,
		severity: SeverityError,
		retry:    RetryNever,
		message:  message,
	}}
}

// WrapError starts an error of category caused by err.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	return NewError(category, message).WithCause(err)
}

func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.err.cause = err
	return b
}

func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.err.context = b.err.context.Set(key, value)
	return b
}

func (b *ErrorBuilder) WithRetry(strategy RetryStrategy) *ErrorBuilder {
	b.err.retry = strategy
	return b
}

// Fatal marks the error as stopping the whole run.
func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	b.err.severity = SeverityFatal
	return b
}

// Warning marks the error as reportable without failing the output.
func (b *ErrorBuilder) Warning() *ErrorBuilder {
	b.err.severity = SeverityWarning
	return b
}

// UserAction marks the error as fixable only by changing inputs.
func (b *ErrorBuilder) UserAction() *ErrorBuilder {
	return b.WithRetry(RetryUserAction)
}

// Build returns the error. The builder may be reused; later calls do not
// affect errors already built.
func (b *ErrorBuilder) Build() *ClassifiedError {
	out := b.err
	out.context = make(ErrorContext, len(b.err.context))
	for k, v := range b.err.context {
		out.context[k] = v
	}
	return &out
}

// ConfigError is fatal and requires the user to fix the build file.
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal().UserAction()
}

// ValidationError reports invalid command-line input.
func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).Fatal().UserAction()
}

// CompositionError fails the artifact being composed.
func CompositionError(message string) *ErrorBuilder {
	return NewError(CategoryComposition, message)
}

// CollaboratorError attaches the external tool's output verbatim.
func CollaboratorError(message, diagnostics string) *ErrorBuilder {
	return NewError(CategoryCollaborator, message).WithContext(ContextDiagnostics, diagnostics)
}

// NetworkError reports a failed fetch. Fetches are never retried internally.
func NetworkError(message string) *ErrorBuilder {
	return NewError(CategoryNetwork, message)
}

func GitError(message string) *ErrorBuilder {
	return NewError(CategoryGit, message)
}

func FileSystemError(message string) *ErrorBuilder {
	return NewError(CategoryFileSystem, message)
}

func DocsError(message string) *ErrorBuilder {
	return NewError(CategoryDocs, message)
}

func RuntimeError(message string) *ErrorBuilder {
	return NewError(CategoryRuntime, message).Fatal()
}

func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
