package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by the workflows. Use errors.Is to classify.
var (
	ErrDuplicateStudentID = errors.New("student id already exists")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrUnknownUser        = errors.New("email not registered")
	ErrBadCredentials     = errors.New("incorrect password")
	ErrRemoteUnavailable  = errors.New("remote unavailable")
	ErrProfileSave        = errors.New("failed to save profile")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrNotSignedIn        = errors.New("not signed in")
)

// FieldError is a single validation failure attached to a form field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors lists every field that failed validation, in field order.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, fe := range v {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "; ")
}

// For returns the message for field, or "" if the field passed.
func (v ValidationErrors) For(field string) string {
	for _, fe := range v {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

// DuplicateStudentIDError names the student ID that is already taken.
type DuplicateStudentIDError struct {
	StudentID string
}

func (e *DuplicateStudentIDError) Error() string {
	return e.StudentID + " already exists"
}

func (e *DuplicateStudentIDError) Is(target error) bool {
	return target == ErrDuplicateStudentID
}

// DuplicateEmailError names the email the auth service already knows.
type DuplicateEmailError struct {
	Email string
}

func (e *DuplicateEmailError) Error() string {
	if e.Email == "" {
		return ErrDuplicateEmail.Error()
	}
	return fmt.Sprintf("email %s already exists, please log in", e.Email)
}

func (e *DuplicateEmailError) Is(target error) bool {
	return target == ErrDuplicateEmail
}

// RemoteError is a backend or network failure. Message is shown to the user verbatim.
type RemoteError struct {
	Op      string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Message != "":
		return e.Op + ": " + e.Message
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	default:
		return e.Op + ": " + ErrRemoteUnavailable.Error()
	}
}

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemoteUnavailable
}

// ProfileSaveError reports a profile write that failed after the account was
// created. RollbackErr is set when the compensating account delete also failed.
type ProfileSaveError struct {
	UserID      string
	Err         error
	RollbackErr error
}

func (e *ProfileSaveError) Error() string {
	msg := "failed to save user data: " + e.Err.Error()
	if e.RollbackErr != nil {
		msg += " (account cleanup failed: " + e.RollbackErr.Error() + ")"
	}
	return msg
}

func (e *ProfileSaveError) Unwrap() error { return e.Err }

func (e *ProfileSaveError) Is(target error) bool {
	return target == ErrProfileSave
}
