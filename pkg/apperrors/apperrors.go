package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the application-level error surfaced to clients. Every feature
// operation converts its failures into one of these so nothing crashes the
// HTTP shell and each panel can render an inline message.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	// Reselect marks credential-related gateway failures: the client should
	// flip the panel into its credential-reselection state.
	Reselect bool  `json:"reselectCredential,omitempty"`
	Err      error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	CodeAuth              = "AUTH_ERROR"
	CodeEntitlement       = "ENTITLEMENT_ERROR"
	CodeMedia             = "MEDIA_ERROR"
	CodeGateway           = "GATEWAY_ERROR"
	CodeCredentialInvalid = "CREDENTIAL_INVALID"
	CodeBadRequest        = "BAD_REQUEST"
	CodeConflict          = "CONFLICT"
	CodeGeneric           = "GENERIC_ERROR"
)

// Auth wraps a sign-in/sign-out failure. Recoverable; the session is left
// unchanged by the caller.
func Auth(message string, err error) *AppError {
	return &AppError{Code: CodeAuth, Message: message, StatusCode: http.StatusUnauthorized, Err: err}
}

// Entitlement reports an insufficient coin balance. The paid operation must
// not have been attempted.
func Entitlement(message string) *AppError {
	return &AppError{Code: CodeEntitlement, Message: message, StatusCode: http.StatusPaymentRequired}
}

// Media reports an invalid or unreadable media input.
func Media(message string, err error) *AppError {
	return &AppError{Code: CodeMedia, Message: message, StatusCode: http.StatusUnprocessableEntity, Err: err}
}

// Gateway reports an upstream AI-service failure.
func Gateway(message string, err error) *AppError {
	return &AppError{Code: CodeGateway, Message: message, StatusCode: http.StatusBadGateway, Err: err}
}

// CredentialInvalid reports an invalid or expired API credential. Clients
// downgrade the affected panel to a credential-reselection prompt.
func CredentialInvalid(err error) *AppError {
	return &AppError{
		Code:       CodeCredentialInvalid,
		Message:    "The configured AI credential appears to be invalid or expired",
		StatusCode: http.StatusBadGateway,
		Reselect:   true,
		Err:        err,
	}
}

// BadRequest reports a malformed client request.
func BadRequest(message string, err error) *AppError {
	return &AppError{Code: CodeBadRequest, Message: message, StatusCode: http.StatusBadRequest, Err: err}
}

// Conflict reports an operation rejected because a previous one for the same
// resource is still outstanding.
func Conflict(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message, StatusCode: http.StatusConflict}
}

// Generic is the catch-all: surfaced as "please try again".
func Generic(err error) *AppError {
	return &AppError{
		Code:       CodeGeneric,
		Message:    "Something went wrong, please try again",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// From returns err as an *AppError, wrapping unknown errors as Generic.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Generic(err)
}
