package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/naveenspark/roster/pkg/domain"
)

// HTTPError represents a non-2xx HTTP response from either service.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Code returns the machine-readable prefix of an auth error message,
// e.g. "WEAK_PASSWORD" from "WEAK_PASSWORD : Password should be at least 6 characters".
func (e *HTTPError) Code() string {
	code, _, _ := strings.Cut(e.Message, " ")
	return code
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// isIndexNotDefined reports whether err is the store's rejection of an
// orderBy query on a child without an ".indexOn" rule.
func isIndexNotDefined(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) &&
		httpErr.StatusCode == http.StatusBadRequest &&
		strings.HasPrefix(httpErr.Message, "Index not defined")
}

// authError maps an auth service failure to a domain error kind.
func authError(op, email string, err error) error {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return &domain.RemoteError{Op: op, Err: err}
	}
	switch httpErr.Code() {
	case "EMAIL_EXISTS":
		return &domain.DuplicateEmailError{Email: email}
	case "EMAIL_NOT_FOUND":
		return domain.ErrUnknownUser
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
		return domain.ErrBadCredentials
	case "TOKEN_EXPIRED", "INVALID_ID_TOKEN", "USER_NOT_FOUND", "INVALID_REFRESH_TOKEN":
		return fmt.Errorf("%s: %w", httpErr.Message, domain.ErrNotSignedIn)
	}
	return &domain.RemoteError{Op: op, Message: httpErr.Message, Err: err}
}

// storeError maps a store failure to a domain error kind.
func storeError(op string, err error) error {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return &domain.RemoteError{Op: op, Message: httpErr.Message, Err: err}
	}
	return &domain.RemoteError{Op: op, Err: err}
}
