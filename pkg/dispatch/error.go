package dispatch

// Error codes reported at the dispatch boundary. Handlers return plain
// errors; only the dispatcher itself produces coded errors.
const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeUnknownAction   = "UNKNOWN_ACTION"
	CodeUnsupportedShim = "UNSUPPORTED_SHIM"
	CodeInternal        = "INTERNAL"
)

// Error is a dispatch boundary failure. Message is what clients see in
// the error envelope; Code classifies the failure for logs and tests.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

var (
	errInvalidRequest = &Error{Code: CodeInvalidRequest, Message: "invalid request"}
	errUnauthorized   = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	errInternal       = &Error{Code: CodeInternal, Message: "internal error"}
)

func errUnknownAction(name string) *Error {
	return &Error{Code: CodeUnknownAction, Message: "unknown action: " + name}
}

func errUnsupportedShim(version string) *Error {
	return &Error{Code: CodeUnsupportedShim, Message: "unsupported shim version: " + version}
}
