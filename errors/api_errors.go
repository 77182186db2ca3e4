package errors

import "fmt"

// APIError represents a standardized platform API error. It is serialized
// as {"error": ..., "message": ...} on the wire and classified client-side
// by its code.
type APIError struct {
	Code    string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Standard platform error codes.
const (
	InvalidRequest     = "invalid_request"
	InvalidCredentials = "invalid_credentials"
	EmailTaken         = "email_taken"
	WeakPassword       = "weak_password"
	AccountSuspended   = "account_suspended"
	Unauthorized       = "unauthorized"
	Forbidden          = "forbidden"
	NotFound           = "not_found"
	ServerError        = "server_error"
)

// Common error constructors.
func NewInvalidRequest(message string) *APIError {
	return &APIError{Code: InvalidRequest, Message: message}
}

func NewInvalidCredentials(message string) *APIError {
	return &APIError{Code: InvalidCredentials, Message: message}
}

func NewUnauthorized(message string) *APIError {
	return &APIError{Code: Unauthorized, Message: message}
}

func NewForbidden(message string) *APIError {
	return &APIError{Code: Forbidden, Message: message}
}

func NewNotFound(message string) *APIError {
	return &APIError{Code: NotFound, Message: message}
}

func NewServerError(message string) *APIError {
	return &APIError{Code: ServerError, Message: message}
}
