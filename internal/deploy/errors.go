package deploy

import (
	"errors"
	"fmt"

	"github.com/RichardoC/dehost/internal/ipfs"
)

type ErrorCode string

const (
	ErrorConfiguration  ErrorCode = "CONFIGURATION"
	ErrorNoContent      ErrorCode = "CONTENT_NOT_FOUND"
	ErrorUnextractable  ErrorCode = "CONTENT_UNEXTRACTABLE"
	ErrorUpload         ErrorCode = "UPLOAD_FAILED"
	ErrorInProgress     ErrorCode = "IN_PROGRESS"
	ErrorEmptyShareText ErrorCode = "EMPTY_TEXT"
)

// Error is a failed deploy or share attempt. Reason is the user-facing text.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("deploy: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("deploy: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches on code, so errors.Is(err, ErrNoContent) holds for any
// CONTENT_NOT_FOUND error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t.Code == e.Code
}

var (
	ErrNoContent = &Error{
		Code:   ErrorNoContent,
		Reason: "No HTML content found in the chat. Please generate a website first.",
	}
	ErrUnextractable = &Error{
		Code:   ErrorUnextractable,
		Reason: "Could not extract HTML content from the message.",
	}
	ErrInProgress = &Error{
		Code:   ErrorInProgress,
		Reason: "A deployment is already in progress.",
	}
	// ErrShareInProgress matches ErrInProgress under errors.Is.
	ErrShareInProgress = &Error{
		Code:   ErrorInProgress,
		Reason: "An upload is already in progress.",
	}
	ErrEmptyText = &Error{
		Code:   ErrorEmptyShareText,
		Reason: "Nothing to upload.",
	}
)

const (
	uploadFailedReason = "Failed to deploy to IPFS. Please try again."
	configReason       = "IPFS deployment is not configured. Set a Lighthouse API key and try again."
)

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// classifyUpload turns an uploader failure into a configuration or upload error.
func classifyUpload(err error, uploadReason string) *Error {
	if errors.Is(err, ipfs.ErrMissingCredential) {
		return newError(ErrorConfiguration, configReason, err)
	}
	return newError(ErrorUpload, uploadReason, err)
}

// uploadStatus returns the pinning service's HTTP status for err, or 0.
func uploadStatus(err error) int {
	var se *ipfs.HTTPStatusError
	if errors.As(err, &se) {
		return se.HTTPStatusCode()
	}
	return 0
}

// UserMessage returns the text to show the user for err.
func UserMessage(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Reason != "" {
		return de.Reason
	}
	return uploadFailedReason
}
