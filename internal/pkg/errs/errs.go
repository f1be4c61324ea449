/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error interface
and carries a business code, a user-facing message and an HTTP status used by the control API.
*/
package errs

import (
	"fmt"
	"net/http"
	"strings"

	"hzrealtime/internal/pkg/logx"
)

// CustomError is the custom error structure used throughout the application.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int `json:"code"`

	// Message is the user-friendly error description.
	Message string `json:"message"`

	// Status is the HTTP status code used when the error is returned by the control API.
	Status int `json:"-"`
}

// Error implements the standard Go error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// NewError builds a *CustomError from a registered code. details are printf arguments
// for templates that contain verbs. For ErrUnknown a leading error detail is logged
// instead. Unregistered codes yield ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	tmpl, ok := errorMap[code]
	if !ok {
		logx.Warn("Unregistered error code requested", "requested_code", code)
		tmpl = errorMap[ErrUnknown]
		details = nil
	}

	out := tmpl
	if out.Status == 0 {
		out.Status = http.StatusOK
	}

	switch {
	case len(details) == 0:
	case out.Code == ErrUnknown:
		if cause, isErr := details[0].(error); isErr {
			logx.Error(cause, "Unknown error surfaced")
		}
	case strings.Contains(out.Message, "%"):
		out.Message = fmt.Sprintf(out.Message, details...)
	default:
		logx.Warn("Error template takes no details, ignoring them", "code", code, "details", len(details))
	}

	return &out
}
