package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/fleetwave/fleetwave/internal/common/apperrors"
)

// Error represents an HTTP error response. It is written to the wire in the
// API's error envelope: {"error": {"code": "...", "message": "..."}}.
type Error struct {
	Code        string `json:"code"`
	Description string `json:"message"`
	StatusCode  int    `json:"-"`
}

type errorRsp struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Send writes the error response to the provided ResponseWriter.
// If the writer is nil, no action is taken.
func (e *Error) Send(w http.ResponseWriter) {
	if w == nil {
		return
	}
	rsp := &errorRsp{
		Error: errorBody{
			Code:    e.Code,
			Message: e.Description,
		},
	}
	rspJson, err := json.Marshal(rsp)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("unable to render error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	w.Write(rspJson)
}

// Error returns the error description.
func (e *Error) Error() string {
	return e.Description
}

// Is reports whether the error matches the target error.
func (current Error) Is(other error) bool {
	return current.Error() == other.Error()
}

// SendError sends an application error as an HTTP error response, carrying
// the error's machine code through to the envelope.
func SendError(w http.ResponseWriter, err apperrors.Error) {
	if err == nil {
		return
	}
	statusCode := err.StatusCode()
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	httperror := &Error{
		StatusCode:  statusCode,
		Code:        err.Code(),
		Description: err.ErrorAll(),
	}
	httperror.Send(w)
}

// Common Errors

// ErrReqMethodNotSupported returns an error for unsupported HTTP methods.
func ErrReqMethodNotSupported() *Error {
	return &Error{
		Code:        "invalid_request",
		Description: "request method not supported",
		StatusCode:  http.StatusMethodNotAllowed,
	}
}

// ErrUnableToParseReqData returns an error when request data cannot be parsed.
func ErrUnableToParseReqData() *Error {
	return &Error{
		Code:        "invalid_request",
		Description: "unable to parse request data",
		StatusCode:  http.StatusBadRequest,
	}
}

// ErrInvalidRequest returns an error for invalid request data.
// If no message is provided, a default message is used.
func ErrInvalidRequest(str ...string) *Error {
	s := "invalid request data or empty request values"
	if len(str) > 0 {
		s = str[0]
	}
	return &Error{
		Code:        "invalid_request",
		Description: s,
		StatusCode:  http.StatusBadRequest,
	}
}

// ErrNotFound returns an error for a missing resource.
// If no message is provided, a default message is used.
func ErrNotFound(str ...string) *Error {
	s := "resource not found"
	if len(str) > 0 {
		s = str[0]
	}
	return &Error{
		Code:        "not_found",
		Description: s,
		StatusCode:  http.StatusNotFound,
	}
}

// ErrApplicationError returns an error for application-level failures.
// If no message is provided, a default message is used.
func ErrApplicationError(err ...string) *Error {
	s := "unable to process request"
	if len(err) > 0 {
		s = err[0]
	}
	return &Error{
		Code:        "server_error",
		Description: s,
		StatusCode:  http.StatusInternalServerError,
	}
}

// ErrUnAuthorized returns an error for unauthorized requests.
// If no message is provided, a default message is used.
func ErrUnAuthorized(str ...string) *Error {
	s := "unable to authenticate request"
	if len(str) > 0 {
		s = str[0]
	}
	return &Error{
		Code:        "unauthorized",
		Description: s,
		StatusCode:  http.StatusUnauthorized,
	}
}

// ErrMissingKeyInRequest returns an error when the authentication key is
// missing.
func ErrMissingKeyInRequest() *Error {
	return &Error{
		Code:        "unauthorized",
		Description: "missing authentication key in request",
		StatusCode:  http.StatusUnauthorized,
	}
}

// ErrTokenExpired returns an error for an expired workspace token.
func ErrTokenExpired() *Error {
	return &Error{
		Code:        "token_expired",
		Description: "token has expired",
		StatusCode:  http.StatusUnauthorized,
	}
}

// ErrTokenRevoked returns an error for a revoked workspace token.
func ErrTokenRevoked() *Error {
	return &Error{
		Code:        "token_revoked",
		Description: "token has been revoked",
		StatusCode:  http.StatusUnauthorized,
	}
}

// ErrRateLimited returns an error for throttled requests.
func ErrRateLimited() *Error {
	return &Error{
		Code:        "rate_limited",
		Description: "too many requests",
		StatusCode:  http.StatusTooManyRequests,
	}
}

// ErrRequestTimeout returns an error for request timeout.
func ErrRequestTimeout() *Error {
	return &Error{
		Code:        "timeout",
		Description: "request timed out",
		StatusCode:  http.StatusRequestTimeout,
	}
}
