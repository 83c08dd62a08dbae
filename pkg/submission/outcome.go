package submission

import "github.com/tentapress/forms/pkg/validation"

// Reserved keys the submission body carries alongside the form's own fields.
const (
	PayloadKey   = "_tp_payload"
	HoneypotKey  = "_tp_hp"
	StartedAtKey = "_tp_started_at"
	ReturnURLKey = "_tp_return_url"
)

// User-facing fallback messages. Authored success/error copy from the signed
// payload takes precedence where present.
const (
	MessageInvalidConfig      = "Form configuration is invalid. Please refresh and try again."
	MessageNoFields           = "No fields were configured for this form."
	MessageCheckFields        = "Please check the highlighted fields and try again."
	MessageProviderMissing    = "Submission provider is not available."
	MessageSubmissionFailed   = "We could not submit your form. Please try again."
	MessageSubmissionReceived = "Thanks. Your submission was received."
)

// Failure categories stamped on the telemetry record. CategoryOK marks a
// successful attempt.
const (
	CategoryOK         = "ok"
	CategoryConfig     = "config"
	CategorySpam       = "spam"
	CategoryValidation = "validation"
	CategoryProvider   = "provider"
)

// Outcome is the terminal result of one submission attempt.
type Outcome struct {
	OK          bool
	Message     string
	RedirectURL string

	// FieldErrors is populated only for validation failures so the caller
	// can re-render the form with inline errors.
	FieldErrors validation.Errors
}

// failure builds a failed outcome with a user-facing message.
func failure(message string) Outcome {
	return Outcome{Message: message}
}
