package constant

// Fallbacks for error bodies that carry no business code.
const (
	DefaultErrorTitle           = "request_failed"
	DefaultInternalErrorMessage = "An internal error occurred"
)
