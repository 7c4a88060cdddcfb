package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Session-specific ──────────────────────────────────────────────
	ErrExamUnavailable ErrCode = "EXAM_UNAVAILABLE"
	ErrNoQuestions     ErrCode = "NO_QUESTIONS"
	ErrSessionNotFound ErrCode = "SESSION_NOT_FOUND"
	ErrSessionClosed   ErrCode = "SESSION_CLOSED"
	ErrNoResult        ErrCode = "NO_RESULT"
	ErrUnknownQuestion ErrCode = "UNKNOWN_QUESTION"
	ErrUnknownOption   ErrCode = "UNKNOWN_OPTION"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrExamUnavailable:
		return "This exam is currently unavailable."
	case ErrNoQuestions:
		return "This exam has no questions."
	case ErrSessionNotFound:
		return "No such exam session."
	case ErrSessionClosed:
		return "This exam session has already finished."
	case ErrNoResult:
		return "No result is available for this session."
	case ErrUnknownQuestion:
		return "The question does not belong to this session."
	case ErrUnknownOption:
		return "The question has no such option."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
