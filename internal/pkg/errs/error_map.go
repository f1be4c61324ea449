/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError template used by
NewError.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: Control API Request Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrOriginForbidden:      {Code: ErrOriginForbidden, Message: "Requests from this origin are not allowed.", Status: http.StatusForbidden},

	// 2xxx: Realtime Operation Errors
	ErrNotConnected:           {Code: ErrNotConnected, Message: "Not connected to the messaging service.", Status: http.StatusServiceUnavailable},
	ErrDuplicateTempID:        {Code: ErrDuplicateTempID, Message: "A message with temp id %s is still pending.", Status: http.StatusConflict},
	ErrPendingNotFound:        {Code: ErrPendingNotFound, Message: "No pending message with temp id %s.", Status: http.StatusNotFound},
	ErrTempIDInvalid:          {Code: ErrTempIDInvalid, Message: "Temp id must not start or end with whitespace.", Status: http.StatusBadRequest},
	ErrConversationInvalid:    {Code: ErrConversationInvalid, Message: "Invalid conversation.", Status: http.StatusBadRequest},
	ErrMessageContentTooLong:  {Code: ErrMessageContentTooLong, Message: "Message is too long.", Status: http.StatusBadRequest},
	ErrAttachmentCountInvalid: {Code: ErrAttachmentCountInvalid, Message: "A message can carry at most %d attachments.", Status: http.StatusBadRequest},
	ErrAttachmentTypeInvalid:  {Code: ErrAttachmentTypeInvalid, Message: "Invalid attachment.", Status: http.StatusBadRequest},

	// 3xxx: Session and Protocol Errors
	ErrAuthNotAcknowledged: {Code: ErrAuthNotAcknowledged, Message: "Authentication was not acknowledged within %s."},
	ErrSessionTokenInvalid: {Code: ErrSessionTokenInvalid, Message: "Invalid session token.", Status: http.StatusUnauthorized},
	ErrReconnectExhausted:  {Code: ErrReconnectExhausted, Message: "Gave up reconnecting after %d attempts."},
	ErrProtocol:            {Code: ErrProtocol, Message: "Server error: %s"},

	// 5xxx: Internal Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
