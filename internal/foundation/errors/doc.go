// Package errors provides the classified error primitives used across buildwatch.
//
// A ClassifiedError carries a category (config, startup, listen, build, ...),
// a severity and a small context map. Errors are constructed with
// the fluent builder:
//
//	err := errors.StartupError("could not construct compiler").
//		WithCause(cause).
//		WithContext("config_path", path).
//		Build()
//
// The CLI adapter maps categories to process exit codes.
package errors
