package apperr

import "errors"

// Kind classifies a domain failure so the request layer can map it to a response.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindInvalidToken    Kind = "invalid_token"
	KindUnknownTemplate Kind = "unknown_template"
	KindDelivery        Kind = "delivery"
	KindDataConflict    Kind = "data_conflict"
)

// Sentinels for errors.Is checks. Match is by kind only.
var (
	ErrValidation      = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidToken    = &Error{Kind: KindInvalidToken, Message: "invalid token"}
	ErrUnknownTemplate = &Error{Kind: KindUnknownTemplate, Message: "unknown template"}
	ErrDelivery        = &Error{Kind: KindDelivery, Message: "delivery failed"}
	ErrDataConflict    = &Error{Kind: KindDataConflict, Message: "data conflict"}
)

// Error is a domain error carrying a kind, an internal message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	// Stage names the step that failed when an operation has several, e.g. "cascade".
	Stage string
	// Recipients lists addresses already submitted before a delivery failure.
	Recipients []string
	Cause      error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Stage != "" {
		msg = e.Stage + ": " + msg
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validation reports malformed input.
func Validation(message string) *Error { return New(KindValidation, message) }

// NotFound reports a missing entity.
func NotFound(message string) *Error { return New(KindNotFound, message) }

// InvalidToken reports a missing, mismatched or already used confirmation token.
func InvalidToken() *Error { return New(KindInvalidToken, "invalid token") }

// UnknownTemplate reports an unregistered broadcast template key.
func UnknownTemplate(key string) *Error {
	return New(KindUnknownTemplate, "template "+key+" is not configured")
}

// Delivery wraps a notifier failure. stage may be empty.
func Delivery(stage string, cause error) *Error {
	return &Error{Kind: KindDelivery, Message: "delivery failed", Stage: stage, Cause: cause}
}

// DataConflict reports a write that should have produced a readable row but did not.
func DataConflict(message string) *Error { return New(KindDataConflict, message) }

// KindOf returns the kind of err, or "" when err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StageOf returns the failing stage recorded on err.
func StageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}
