package services

import (
	"fmt"
	"net/http"
)

// Authorization error codes.
const (
	CodeNoHeader        = "no_header"
	CodeMalformedHeader = "malformed_header"
	CodeInvalidHeader   = "invalid_header"
	CodeTokenExpired    = "token_expired"
	CodeInvalidClaims   = "invalid_claims"
	CodeUnauthorized    = "unauthorized"
)

// AuthError is a rejected authorization. Status is the HTTP status to
// answer with and Code the machine readable reason.
type AuthError struct {
	Status      int
	Code        string
	Description string
	Err         error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func newAuthError(status int, code, description string, err error) *AuthError {
	return &AuthError{Status: status, Code: code, Description: description, Err: err}
}

func errNoHeader() *AuthError {
	return newAuthError(http.StatusUnauthorized, CodeNoHeader, "Authorization header is expected.", nil)
}

func errMalformedHeader(description string) *AuthError {
	return newAuthError(http.StatusUnauthorized, CodeMalformedHeader, description, nil)
}

func errInvalidHeader(description string, err error) *AuthError {
	return newAuthError(http.StatusUnauthorized, CodeInvalidHeader, description, err)
}

func errTokenExpired(err error) *AuthError {
	return newAuthError(http.StatusUnauthorized, CodeTokenExpired, "Token expired.", err)
}

func errInvalidClaims(status int, description string, err error) *AuthError {
	return newAuthError(status, CodeInvalidClaims, description, err)
}

func errUnauthorized(permission string) *AuthError {
	return newAuthError(http.StatusForbidden, CodeUnauthorized, fmt.Sprintf("Permission %q not found.", permission), nil)
}
