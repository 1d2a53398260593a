package errors

// Error codes for standardized error responses
const (
	// Session errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"

	// Game errors
	ErrCodeGameComplete       = "game_complete"
	ErrCodeNoMoreHints        = "no_more_hints"
	ErrCodeQuestionNotFound   = "question_not_found"
	ErrCodeSessionIssueFailed = "session_issue_failed"
	ErrCodeProgressConflict   = "progress_conflict"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError = "internal_error"
	ErrCodeUpstreamError = "upstream_error"
)
