// Package errors classifies modjar failures.
//
// Every error that reaches the CLI should be a *ClassifiedError built with
// NewError, WrapError or one of the category constructors. The category
// selects the exit code; ContextProject, ContextModule, ContextPath and
// ContextURL locate the failure; ContextDiagnostics carries compiler or
// generator output untouched.
//
//	return errors.CompositionError("ambiguous unversioned entry").
//		WithContext(errors.ContextProject, "api").
//		WithContext(errors.ContextPath, "org/example/Foo.class").
//		Build()
package errors
