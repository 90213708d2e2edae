package errors

// ErrorCategory represents the broad category of an error for classification and routing.
type ErrorCategory string

const (
	// CategoryConfig represents user-facing configuration and input errors.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// CategoryResolve covers locating the build tool inside the project tree.
	CategoryResolve ErrorCategory = "resolve"

	// CategoryStartup and CategoryListen are the two session start failure kinds.
	CategoryStartup ErrorCategory = "startup"
	CategoryListen  ErrorCategory = "listen"

	CategoryBuild      ErrorCategory = "build"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryMessaging  ErrorCategory = "messaging"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorSeverity indicates the impact level of an error.
type ErrorSeverity string

const (
	SeverityFatal ErrorSeverity = "fatal" // Stops execution completely
	SeverityError ErrorSeverity = "error" // Fails the current operation
)

// ErrorContext provides structured context for errors.
type ErrorContext map[string]any

// Set adds or updates a context value.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Get retrieves a context value.
func (c ErrorContext) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	value, exists := c[key]
	return value, exists
}
