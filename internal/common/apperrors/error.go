// Package apperrors provides the error type shared by the CLI and the request
// engine. It extends the standard error interface with error wrapping, HTTP
// status codes, and stable machine-readable codes so callers can classify a
// failure without matching on message text. All methods return Error to
// support method chaining.
package apperrors

// Error defines the interface for application errors. Methods that modify
// the error return a copy, leaving the receiver unchanged.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	// Extended methods
	New(msg string) Error                  // creates a new error using current as template
	Msg(msg string) Error                  // creates a new error with message and wraps original
	MsgErr(msg string, err ...error) Error // creates error with message and wraps extra errors
	Err(err ...error) Error                // attaches additional errors to current error
	SetExpandError(bool) Error             // controls whether ErrorAll expands wrapped errors
	SetStatusCode(int) Error               // sets HTTP status code for the error
	StatusCode() int                       // returns the current status code
	SetCode(string) Error                  // sets the machine-readable failure code
	Code() string                          // returns the machine-readable failure code
	Prefix(string) Error                   // adds a prefix to the error message
	Suffix(string) Error                   // adds a suffix to the error message
	ErrorAll() string                      // returns full message including wrapped errors
	UnwrapAll() []error                    // returns all wrapped errors
}
