/*
Package errs provides custom error types and application-level error code constants.

These codes identify failures surfaced by the realtime client: control API request
problems, caller misuse of realtime operations, and session or protocol conditions
that are published on the error subscription instead of being returned.
*/
package errs

// 1xxx: Control API Request Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrOriginForbidden indicates that a browser request came from an origin that may not drive the session.
	ErrOriginForbidden = 1008
)

// 2xxx: Realtime Operation Errors
const (
	// ErrNotConnected indicates that the operation was dropped because no channel exists.
	ErrNotConnected = 2001

	// ErrDuplicateTempID indicates that a send reused the correlation token of an outstanding send.
	ErrDuplicateTempID = 2002

	// ErrPendingNotFound indicates that no outstanding send carries the given correlation token.
	ErrPendingNotFound = 2003

	// ErrTempIDInvalid indicates that a correlation token carries leading or trailing whitespace.
	ErrTempIDInvalid = 2004

	// ErrConversationInvalid indicates that the conversation identifier is missing or malformed.
	ErrConversationInvalid = 2101

	// ErrMessageContentTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201

	// ErrAttachmentCountInvalid indicates that a message carried too many attachments.
	ErrAttachmentCountInvalid = 2202

	// ErrAttachmentTypeInvalid indicates that an attachment's name and MIME type are not allowed.
	ErrAttachmentTypeInvalid = 2203
)

// 3xxx: Session and Protocol Errors
const (
	// ErrAuthNotAcknowledged indicates that the backend never acknowledged the authenticate request.
	ErrAuthNotAcknowledged = 3001

	// ErrSessionTokenInvalid indicates that the supplied session token could not be decoded.
	ErrSessionTokenInvalid = 3002

	// ErrReconnectExhausted indicates that the reconnection policy gave up.
	ErrReconnectExhausted = 3003

	// ErrProtocol wraps an explicit error event sent by the backend.
	ErrProtocol = 3004
)

// 5xxx: Internal Errors
const (
	// ErrUnknown represents an unclassified internal error.
	ErrUnknown = 5000
)
